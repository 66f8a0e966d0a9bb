package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects the bucket and object holding the state.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // optional; set for MinIO and other S3-compatible stores
	AccessKeyID     string // optional, falls back to the default credential chain
	SecretAccessKey string
	PathStyle       bool
}

// S3Store keeps the state as one JSON object.
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	if cfg.Key == "" {
		cfg.Key = "estimator/state.json"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (s *S3Store) Load(ctx context.Context) (State, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return Empty(), nil
		}
		return State{}, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return State{}, fmt.Errorf("read state object: %w", err)
	}
	return decode(data)
}

func (s *S3Store) Save(ctx context.Context, state State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &s.key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }
