package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/pkg/ports"
)

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// Serve exposes srv over streamable HTTP on l until ctx is done.
func Serve(ctx context.Context, srv *server.MCPServer, l net.Listener, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(srv))
	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("mcp server listening", zap.String("url", "http://"+l.Addr().String()+EndpointPath))
	err := httpSrv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on addr, or a nearby port when it is taken, and
// calls Serve.
func ListenAndServe(ctx context.Context, srv *server.MCPServer, addr string, logger *zap.Logger) error {
	l, err := ports.Listen(addr)
	if err != nil {
		return fmt.Errorf("mcp listen: %w", err)
	}
	return Serve(ctx, srv, l, logger)
}
