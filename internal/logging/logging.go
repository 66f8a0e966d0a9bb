// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/standardbeagle/estimator/internal/config"
)

// New builds a logger from cfg. When toFile is set, output goes only to
// cfg.File so the terminal stays free for the UI.
func New(cfg config.LoggingConfig, toFile bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if toFile {
		if cfg.File == "" {
			return zap.NewNop(), nil
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		zcfg.OutputPaths = []string{cfg.File}
		zcfg.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
