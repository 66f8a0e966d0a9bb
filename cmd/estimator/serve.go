package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/metrics"
	"github.com/standardbeagle/estimator/internal/server"
	"github.com/standardbeagle/estimator/pkg/events"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local estimate store over HTTP",
	Long: `Serve exposes the local backend as a JSON API with a websocket change feed
at /ws and Prometheus metrics at /metrics. Point other instances at it with
[backend] driver = "remote".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Backend.Driver != "local" {
		return errors.New("serve needs backend.driver = \"local\"")
	}
	ctx := cmd.Context()

	bus := events.NewEventBus(logger)
	defer bus.Shutdown()

	be, err := openBackend(ctx, cfg, logger, bus)
	if err != nil {
		return err
	}
	defer be.Close()
	if err := be.watch(ctx, cfg.Storage, logger); err != nil {
		logger.Warn("watching estimates file failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	data := dataservice.Instrument(be.data, metrics.New(reg))

	srv := server.New(data, server.WithLogger(logger), server.WithGatherer(reg))
	srv.Attach(bus)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
