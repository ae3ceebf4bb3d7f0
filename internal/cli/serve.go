package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/awaken/internal/config"
	httpadapter "github.com/aretw0/awaken/pkg/adapters/http"
	"github.com/aretw0/awaken/pkg/adapters/mcp"
	"github.com/aretw0/awaken/pkg/clock"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/observability"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	Config config.Config
	Debug  bool
	// Listener overrides Config.HTTP.Addr when set.
	Listener net.Listener
	Stderr   io.Writer
}

// Serve runs the HTTP API and the wall-clock pump until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger, err := createLogger(opts.Stderr, opts.Config.LogLevel, opts.Debug)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics(true)
	streams := httpadapter.NewStreamManager(logger)
	hooks := streams.Hooks().
		Merge(metrics.Hooks()).
		Merge(observability.LogHooks(logger))

	stack, err := BuildStack(ctx, opts.Config, logger, hooks)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	srv, err := httpadapter.NewServer(stack.Manager, stack.Classifier, stack.Profiles, stack.Controller,
		httpadapter.WithStreams(streams),
		httpadapter.WithMetrics(metrics),
		httpadapter.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("error initializing http server: %w", err)
	}

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", opts.Config.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", opts.Config.HTTP.Addr, err)
		}
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	pump := clock.NewPump(stack.Manager, opts.Config.Clock.Interval, clock.WithSpeed(opts.Config.Clock.Speed))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Awaken Server", "address", ln.Addr().String(), "store", opts.Config.Store.Driver)
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := pump.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		logger.Info("Awaken Server stopped gracefully")
		return nil
	})
	return g.Wait()
}

// MCPOptions configures the MCP server.
type MCPOptions struct {
	Config    config.Config
	Debug     bool
	Transport string
	Addr      string
	BaseURL   string
	Stderr    io.Writer
}

// ServeMCP exposes classification and profiles over MCP.
// Transport is "stdio" (default) or "sse".
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger, err := createLogger(opts.Stderr, opts.Config.LogLevel, opts.Debug)
	if err != nil {
		return err
	}

	cfg := opts.Config
	cfg.Store.Driver = config.DriverMemory
	stack, err := BuildStack(ctx, cfg, logger, domain.LifecycleHooks{})
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	srv := mcp.NewServer(stack.Classifier, stack.Profiles, stack.Controller, mcp.WithLogger(logger))

	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting Awaken MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.Addr
		}
		logger.Info("Starting Awaken MCP Server (SSE)", "address", opts.Addr)
		return srv.ServeSSE(ctx, opts.Addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q. Supported: stdio, sse", opts.Transport)
	}
}
