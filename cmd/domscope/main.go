// Command domscope is the DOM inspection daemon.
//
// Usage:
//
//	domscope -config domscope.yaml          # full configuration
//	domscope -url https://example.com       # live-inspect one page (stdout sink)
//	domscope -file page.html                # one-shot extraction from a file
//	domscope -url ... -serve :8087          # also expose the HTTP action surface
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/osawyer/domscope/connectivity"
	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/inspect"
	"github.com/osawyer/domscope/live"
	"github.com/osawyer/domscope/observe"
	"github.com/osawyer/domscope/store"
)

func main() {
	configPath := flag.String("config", "", "path to domscope.yaml config file")
	pageURL := flag.String("url", "", "live-inspect a single URL (stdout sink)")
	filePath := flag.String("file", "", "extract elements from a local HTML file and exit")
	serveAddr := flag.String("serve", "", "expose the HTTP action surface on this address")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *pageURL, *filePath, *serveAddr); err != nil {
		logger.Error("domscope: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL, filePath, serveAddr string) error {
	if filePath != "" {
		return runFile(logger, filePath)
	}

	var cfg *inspect.Config
	switch {
	case configPath != "":
		c, err := inspect.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	case pageURL != "":
		cfg = inspect.DefaultConfig()
		cfg.Page.URL = pageURL
		cfg.Sinks = []inspect.SinkConfig{{Type: "stdout"}}
	default:
		fmt.Fprintln(os.Stderr, "usage: domscope -config <file> | -url <url> | -file <path>")
		os.Exit(1)
	}

	if cfg.Page.URL == "" {
		return fmt.Errorf("config: page.url is required")
	}
	return runLive(ctx, logger, cfg, serveAddr)
}

// runFile analyses a static HTML file and prints the element inventory.
func runFile(logger *slog.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	arena, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := inspect.DefaultConfig()
	cfg.Sinks = []inspect.SinkConfig{{Type: "stdout"}}

	insp, err := inspect.New(cfg, arena, observe.NewLocal(arena), inspect.WithLogger(logger))
	if err != nil {
		return err
	}
	defer insp.Close()

	_, err = insp.CaptureContext(context.Background())
	return err
}

// runLive attaches to a real page and runs continuous analysis until
// the context is cancelled.
func runLive(ctx context.Context, logger *slog.Logger, cfg *inspect.Config, serveAddr string) error {
	mgr := live.NewManager(live.ManagerConfig{
		RemoteURL: cfg.Browser.Remote,
		Stealth:   live.ParseStealth(cfg.Browser.Stealth),
		Logger:    logger,
	})
	if _, err := mgr.Start(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer mgr.Close()

	tab, err := live.OpenTab(ctx, mgr, cfg.Page.URL, cfg.Browser.NavigateTimeout)
	if err != nil {
		return err
	}
	defer tab.Close()

	source, arena, err := live.NewSource(ctx, tab, live.SourceConfig{
		Debounce: observe.DebounceConfig{
			Window:    cfg.Debounce.Window,
			MaxBuffer: cfg.Debounce.MaxBuffer,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := source.Start(ctx); err != nil {
		return err
	}
	defer source.Stop()

	opts := []inspect.Option{inspect.WithLogger(logger)}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, inspect.WithStore(st))
	}

	insp, err := inspect.New(cfg, arena, source, opts...)
	if err != nil {
		return err
	}
	defer insp.Close()

	insp.StartTracking(ctx)

	if serveAddr != "" {
		router := connectivity.New(
			connectivity.WithLogger(logger),
			connectivity.WithMiddleware(connectivity.Chain(
				connectivity.Recovery(logger),
				connectivity.Logging(logger),
			)),
		)
		insp.RegisterConnectivity(router)

		srv := connectivity.NewHTTPServer(serveAddr, router, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Error("domscope: http server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	<-ctx.Done()
	insp.StopTracking()
	return nil
}
