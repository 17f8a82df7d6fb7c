package main

import (
	"flag"
	"fmt"
	"time"
)

// CLIConfig holds the parsed command line flags.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	Validate        bool
	ShowVersion     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "path to the YAML configuration file (defaults apply when empty)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", "json", "log format: json or text")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", ":9090", "listen address for metrics and health endpoints")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 15*time.Second, "graceful shutdown timeout")
	flag.BoolVar(&cfg.Validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}
