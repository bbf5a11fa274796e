package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/embedd-dev/embedd/internal/config"
	"github.com/embedd-dev/embedd/internal/daemon"
	"github.com/embedd-dev/embedd/internal/logging"
)

// Set at build time via ldflags
var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	fs := pflag.NewFlagSet("embedd", pflag.ExitOnError)
	configFile := fs.String("config", "", "config file (default: ./embedd.yaml or /etc/embedd/embedd.yaml)")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before the environment is read")
	showVersion := fs.Bool("version", false, "Show version")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("embedd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loader := config.NewLoader(*configFile)
	loader.BindFlags(fs)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create daemon", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("starting embedd",
		zap.String("version", version),
		zap.String("config_file", loader.ConfigFileUsed()),
		zap.String("addr", cfg.Server.Address()),
		zap.String("model", cfg.Model.Path),
		zap.String("backend", cfg.Model.Backend),
	)
	if err := d.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("embedd stopped")
}
