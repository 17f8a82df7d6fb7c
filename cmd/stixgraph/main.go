// Package main implements the stixgraph entry point: it bootstraps the
// schema registry, connects the NATS-backed store driver and the
// mutation journal, and serves metrics and health endpoints until
// shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/stixgraph/config"
	"github.com/c360/stixgraph/metric"
	"github.com/c360/stixgraph/natsclient"
	"github.com/c360/stixgraph/riskresponse"
	"github.com/c360/stixgraph/schema"
	"github.com/c360/stixgraph/store"
)

// Build information.
const (
	Version = "0.1.0"
	appName = "stixgraph"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	slog.Info("starting stixgraph",
		"version", Version,
		"base_iri", cfg.Namespace.BaseIRI,
		"store_url", cfg.Store.URL,
	)

	registry, err := bootstrapRegistry()
	if err != nil {
		return fmt.Errorf("bootstrap schema registry: %w", err)
	}

	ctx := context.Background()
	natsClient := natsclient.New(cfg.Store.URL,
		natsclient.WithLogger(logger),
		natsclient.WithTimeout(cfg.Store.Timeout),
	)
	if err := natsClient.Connect(); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() {
		if err := natsClient.Close(); err != nil {
			slog.Warn("NATS close failed", "error", err)
		}
	}()

	journal, err := store.NewJournal(ctx, natsClient, cfg.Journal, logger)
	if err != nil {
		return fmt.Errorf("provision mutation journal: %w", err)
	}

	metrics := metric.NewRegistry()
	driver := store.NewNATSDriver(natsClient, cfg.Store.SubjectPrefix,
		store.WithDriverLogger(logger),
		store.WithDriverMetrics(metrics),
		store.WithDriverTimeout(cfg.Store.Timeout),
	)

	resolver, err := riskresponse.NewResolver(cfg, registry, driver,
		riskresponse.WithLogger(logger),
		riskresponse.WithMetrics(metrics),
		riskresponse.WithJournal(journal),
	)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	_ = resolver // handed to the hosting API layer

	return serveHTTP(ctx, cliCfg, metrics, natsClient)
}

// bootstrapRegistry registers every domain module and freezes the
// registry. Registration errors are boot errors by design.
func bootstrapRegistry() (*schema.Registry, error) {
	registry := schema.NewRegistry()
	if err := riskresponse.RegisterAll(registry); err != nil {
		return nil, err
	}
	if err := registry.Bootstrap(); err != nil {
		return nil, err
	}
	return registry, nil
}

// serveHTTP exposes metrics and health endpoints until a shutdown
// signal arrives.
func serveHTTP(ctx context.Context, cliCfg *CLIConfig, metrics *metric.Registry, natsClient *natsclient.Client) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.PrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cliCfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP endpoints listening", "addr", cliCfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-signalCtx.Done():
		slog.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	slog.Info("stixgraph shutdown complete")
	return nil
}

// loadConfig layers the file, when given, over the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadFile(path)
}
