// Engramd serves the engram relevance engine to AI agents.
//
// The daemon speaks MCP over stdio and, when server.enabled is set,
// exposes the same operations as a JSON API with Prometheus metrics.
//
// Configuration is read from config.yaml in the storage root and
// ENGRAMD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Serve MCP on stdio using the detected storage root
//	engramd
//
//	# HTTP only, against an explicit core root
//	ENGRAMD_SERVER_ENABLED=true engramd -core ~/Datacore -stdio=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/config"
	httpserver "github.com/fyrsmithlabs/engramd/internal/http"
	"github.com/fyrsmithlabs/engramd/internal/logging"
	"github.com/fyrsmithlabs/engramd/internal/mcp"
	"github.com/fyrsmithlabs/engramd/internal/services"
	"github.com/fyrsmithlabs/engramd/internal/store"
	"github.com/fyrsmithlabs/engramd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// options are the command-line flags of the daemon.
type options struct {
	fullPath string
	corePath string
	stdio    bool
	watch    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.fullPath, "data", "", "full storage root (overrides "+store.EnvPath+")")
	flag.StringVar(&opts.corePath, "core", "", "core storage root (overrides "+store.EnvCorePath+")")
	flag.BoolVar(&opts.stdio, "stdio", true, "serve MCP on stdin/stdout")
	flag.BoolVar(&opts.watch, "watch", true, "reload config.yaml on change")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  engramd           Start the engram daemon\n")
			fmt.Fprintf(os.Stderr, "  engramd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("engramd: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("engramd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the daemon and blocks until ctx is cancelled or the stdio
// client disconnects.
//
//  1. Resolves the storage layout and loads its config.yaml
//  2. Initializes telemetry and the logger
//  3. Builds the service registry
//  4. Starts the optional HTTP server and the config watcher
//  5. Serves MCP on stdio
//  6. Shuts everything down within server.shutdown_timeout
func run(ctx context.Context, opts options) error {
	// Storage paths may come from the environment before any file is read.
	boot, err := config.Load("")
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fullPath, corePath := opts.fullPath, opts.corePath
	if fullPath == "" {
		fullPath = boot.Storage.Path
	}
	if corePath == "" {
		corePath = boot.Storage.CorePath
	}

	layout, err := store.Detect(fullPath, corePath)
	if err != nil {
		return fmt.Errorf("failed to detect storage: %w", err)
	}
	firstRun, err := layout.Init()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	cfg, err := config.Load(layout.ConfigPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting engramd",
		zap.String("version", version),
		zap.String("storage_mode", string(layout.Mode)),
		zap.String("storage_path", layout.BasePath),
		zap.Bool("first_run", firstRun),
		zap.Bool("telemetry", tel.IsEnabled()))

	reg, err := services.Build(layout, cfg, logger.Underlying(), version)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	errCh := make(chan error, 2)

	var srv *httpserver.Server
	if cfg.Server.Enabled {
		srv, err = httpserver.NewServer(reg, logger.Underlying(), &httpserver.Config{
			Host:  "localhost",
			Port:  cfg.Server.Port,
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}, httpserver.WithMeterProvider(tel.MeterProvider()))
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
		go func() {
			logger.Info(ctx, "HTTP server listening", zap.String("addr", srv.Addr()))
			errCh <- srv.Start()
		}()
	}

	if opts.watch {
		watcher, err := config.NewWatcher(layout.ConfigPath, config.WithLogger(logger.Underlying()))
		if err != nil {
			logger.Warn(ctx, "config watcher disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(next *config.Config) {
				reg.UpdateConfig(next)
				logger.Info(ctx, "configuration reloaded", zap.String("path", layout.ConfigPath))
			})
			go func() {
				if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn(ctx, "config watcher stopped", zap.Error(err))
				}
			}()
			defer func() { _ = watcher.Stop() }()
		}
	}

	if opts.stdio {
		mcpServer, err := mcp.NewServer(&mcp.Config{
			Name:           "engramd",
			Version:        version,
			Logger:         logger,
			MeterProvider:  tel.MeterProvider(),
			TracerProvider: tel.TracerProvider(),
		}, reg)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		// stdout carries the protocol
		fmt.Fprintf(os.Stderr, "engramd %s serving MCP on stdio (%s)\n", version, layout.BasePath)
		go func() {
			errCh <- mcpServer.Run(ctx)
		}()
	} else if srv == nil {
		return errors.New("nothing to serve: enable server.enabled or -stdio")
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "HTTP shutdown failed", zap.Error(err))
		}
	}

	logger.Info(context.Background(), "engramd stopped")
	return runErr
}

// initLogger builds the structured logger from the logging section. When
// telemetry exports, entries are teed to the OTEL log bridge.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.NewConfig(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logCfg.Output.OTEL = tel.IsEnabled()
	logCfg.Fields = map[string]string{"service": cfg.Observability.ServiceName}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}
