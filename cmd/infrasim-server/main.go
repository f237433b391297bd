package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/infrasim/pkg/api"
	"github.com/dd0wney/infrasim/pkg/config"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
	"github.com/dd0wney/infrasim/pkg/server"
	"github.com/dd0wney/infrasim/pkg/source"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewJSONLogger(os.Stderr, logging.ErrorLevel).Error("failed to load configuration", logging.Error(err))
		os.Exit(2)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	logger.Info("infrasim server starting", logging.String("version", version), logging.String("addr", cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.DefaultRegistry()

	src, err := openSource(ctx, cfg.Levels)
	if err != nil {
		logger.Error("failed to open level source", logging.Error(err))
		os.Exit(1)
	}
	if src != nil {
		src = source.Instrument(src, logger, reg)
		logger.Info("level source configured", logging.String("kind", src.Kind()))
	}

	srv, err := api.NewServer(cfg, api.Options{Source: src, Logger: logger, Metrics: reg, Version: version})
	if err != nil {
		logger.Error("failed to create API server", logging.Error(err))
		os.Exit(1)
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, srv.Handler(), server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	gs.SetConfigReloadFunc(func() error {
		next, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if lvl := next.Log.ParsedLevel(); lvl != logger.GetLevel() {
			logger.Info("log level changed",
				logging.String("from", logger.GetLevel().String()), logging.String("to", lvl.String()))
			logger.SetLevel(lvl)
		}
		return srv.Reconfigure(next)
	})

	if err := gs.Run(ctx); err != nil {
		logger.Error("server error", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

// openSource picks S3 when a bucket is configured, then the levels
// directory. No source is not an error: the batch endpoint is disabled.
func openSource(ctx context.Context, cfg config.LevelsConfig) (source.Source, error) {
	if cfg.S3 != nil {
		return source.NewS3Source(ctx, *cfg.S3)
	}
	if cfg.Dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.Dir); os.IsNotExist(err) {
		return nil, nil
	}
	return source.NewDirSource(cfg.Dir)
}
