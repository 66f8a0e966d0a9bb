package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/labels"
	"github.com/standardbeagle/estimator/internal/mcp"
	"github.com/standardbeagle/estimator/internal/metrics"
	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui"
	"github.com/standardbeagle/estimator/pkg/events"
)

var (
	openList    bool
	openProduct string
	postcode    string
	withMCP     bool
)

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bus := events.NewEventBus(logger)
	defer bus.Shutdown()

	be, err := openBackend(ctx, cfg, logger, bus)
	if err != nil {
		return err
	}
	defer be.Close()

	m := metrics.New(prometheus.NewRegistry())
	data := dataservice.Instrument(be.data, m)
	c, err := cache.New(cfg.Cache.Size, cache.WithInvalidationHook(m.CacheInvalidated))
	if err != nil {
		return err
	}
	m.TrackCacheSize(c.Len)

	lbls, err := labels.Load(cfg.UI.LabelsFile)
	if err != nil {
		return err
	}

	model := tui.New(tui.Options{
		Data:                 data,
		Cache:                c,
		Labels:               lbls,
		Logger:               logger,
		Metrics:              m,
		Bus:                  bus,
		Customer:             orchestrator.Customer{Postcode: postcode},
		LoadingTimeout:       cfg.UI.LoadingTimeout.Duration,
		NotificationDuration: cfg.UI.NotificationDuration.Duration,
	})
	bridge := model.Bridge()

	// External changes drop cached estimates and redraw what is on screen.
	invalidate := invalidator(c)
	onExternal := func(ev events.Event) {
		invalidate(ev)
		if err := bridge.Refresh(ctx); err != nil {
			logger.Debug("refresh after external change dropped", zap.Error(err))
		}
	}
	bus.Subscribe(events.StoreReloaded, onExternal)
	if err := be.watch(ctx, cfg.Storage, logger); err != nil {
		logger.Warn("watching estimates file failed", zap.Error(err))
	}

	if openList || openProduct != "" {
		if err := bridge.Open(ctx, openProduct, openList); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return tui.Run(ctx, model)
	})
	if be.remote != nil {
		g.Go(func() error {
			return be.remote.Subscribe(ctx, onExternal)
		})
	}
	if withMCP || cfg.MCP.Enabled {
		srv := mcp.NewServer(bridge, data, Version)
		g.Go(func() error {
			return mcp.ListenAndServe(ctx, srv, cfg.MCP.Addr, logger)
		})
	}
	return g.Wait()
}
