package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/config"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/dataservice/local"
	"github.com/standardbeagle/estimator/internal/dataservice/remote"
	"github.com/standardbeagle/estimator/internal/dataservice/snapshot"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

// backend is the data service selected by [backend].driver plus whatever
// must be closed with it.
type backend struct {
	data    dataservice.Service
	local   *local.Service
	remote  *remote.Client
	persist snapshot.Store
	watcher *snapshot.Watcher
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, bus events.Publisher) (*backend, error) {
	if cfg.Backend.Driver == "remote" {
		client, err := remote.New(cfg.Backend.URL,
			remote.WithLogger(logger),
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout.Duration}))
		if err != nil {
			return nil, err
		}
		return &backend{data: client, remote: client}, nil
	}

	persist, err := openSnapshot(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	store, err := local.NewStore(ctx, persist, local.DefaultRules()...)
	if err != nil {
		_ = persist.Close()
		return nil, err
	}
	catalog, err := local.LoadCatalog(cfg.Catalog.File)
	if err != nil {
		_ = persist.Close()
		return nil, err
	}

	opts := []local.Option{local.WithLogger(logger)}
	if bus != nil {
		opts = append(opts, local.WithPublisher(bus))
	}
	if cfg.Catalog.RelatedLimit > 0 {
		opts = append(opts, local.WithRelatedLimit(cfg.Catalog.RelatedLimit))
	}
	svc := local.NewService(store, catalog, estimate.NewCategorySet(cfg.Catalog.PrimaryCategories...), opts...)
	logger.Info("local backend ready", zap.String("storage", cfg.Storage.Driver))
	return &backend{data: svc, local: svc, persist: persist}, nil
}

func openSnapshot(ctx context.Context, cfg config.StorageConfig) (snapshot.Store, error) {
	switch cfg.Driver {
	case "memory":
		return snapshot.NewMemory(), nil
	case "file":
		return snapshot.NewFileStore(cfg.Path)
	case "sqlite":
		return snapshot.NewSQLiteStore(ctx, cfg.SQLitePath)
	case "postgres":
		return snapshot.NewPostgresStore(ctx, cfg.PostgresDSN)
	case "s3":
		return snapshot.NewS3Store(ctx, snapshot.S3Config{
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// watch reloads the local store when another process rewrites the
// estimates file. Only the file driver has a file to watch.
func (b *backend) watch(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) error {
	if b.local == nil || cfg.Driver != "file" || !cfg.Watch {
		return nil
	}
	w, err := snapshot.Watch(cfg.Path, func() {
		if err := b.local.Reload(ctx); err != nil {
			logger.Warn("reload after external change failed", zap.Error(err))
		}
	}, logger)
	if err != nil {
		return err
	}
	b.watcher = w
	return nil
}

func (b *backend) Close() error {
	if b.watcher != nil {
		_ = b.watcher.Close()
	}
	if b.persist != nil {
		return b.persist.Close()
	}
	return nil
}

// invalidator drops cached estimates named by external change events.
func invalidator(c *cache.Cache) func(events.Event) {
	return func(ev events.Event) {
		switch {
		case ev.Type == events.StoreReloaded, ev.EstimateID == "":
			c.InvalidateAll()
		default:
			c.Invalidate(ev.EstimateID)
		}
	}
}
