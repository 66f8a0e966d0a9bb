package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
)

//go:embed defaults.toml
var defaultConfig []byte

// Duration decodes TOML strings such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Storage StorageConfig `toml:"storage"`
	Catalog CatalogConfig `toml:"catalog"`
	Cache   CacheConfig   `toml:"cache"`
	UI      UIConfig      `toml:"ui"`
	Server  ServerConfig  `toml:"server"`
	MCP     MCPConfig     `toml:"mcp"`
	Logging LoggingConfig `toml:"logging"`
}

type BackendConfig struct {
	Driver  string   `toml:"driver"`
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

type StorageConfig struct {
	Driver      string   `toml:"driver"`
	Path        string   `toml:"path"`
	SQLitePath  string   `toml:"sqlite_path"`
	PostgresDSN string   `toml:"postgres_dsn"`
	Watch       bool     `toml:"watch"`
	S3          S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket          string `toml:"bucket"`
	Key             string `toml:"key"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PathStyle       bool   `toml:"path_style"`
}

type CatalogConfig struct {
	File              string   `toml:"file"`
	PrimaryCategories []string `toml:"primary_categories"`
	RelatedLimit      int      `toml:"related_limit"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

type UIConfig struct {
	LoadingTimeout       Duration `toml:"loading_timeout"`
	NotificationDuration Duration `toml:"notification_duration"`
	LabelsFile           string   `toml:"labels_file"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	File        string `toml:"file"`
	Development bool   `toml:"development"`
}

// DefaultPath returns the user config file location.
func DefaultPath() (string, error) {
	return homedir.Expand("~/.estimator/config.toml")
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(defaultConfig), &cfg); err != nil {
		return nil, fmt.Errorf("parse default config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the defaults, then path on top of them. An empty path uses
// DefaultPath when that file exists.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(defaultConfig), &cfg); err != nil {
		return nil, fmt.Errorf("parse default config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Storage.Path, &c.Storage.SQLitePath, &c.Catalog.File, &c.UI.LabelsFile, &c.Logging.File} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	var problems []string
	switch c.Backend.Driver {
	case "local", "remote":
	default:
		problems = append(problems, fmt.Sprintf("backend.driver %q must be local or remote", c.Backend.Driver))
	}
	if c.Backend.Driver == "remote" && c.Backend.URL == "" {
		problems = append(problems, "backend.url is required for the remote driver")
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "postgres", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			problems = append(problems, "storage.s3.bucket is required for the s3 driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if len(c.Catalog.PrimaryCategories) == 0 {
		problems = append(problems, "catalog.primary_categories must name at least one category")
	}
	if c.UI.LoadingTimeout.Duration <= 0 {
		problems = append(problems, "ui.loading_timeout must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WriteDefault writes the default config to path unless it already exists.
func WriteDefault(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, defaultConfig, 0o644)
}
