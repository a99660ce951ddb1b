package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xavierca1/npi-leads/internal/app"
	"github.com/xavierca1/npi-leads/internal/config"
	"github.com/xavierca1/npi-leads/internal/infra/logging"
)

func main() {
	if err := newRootCmd(loadServices).Execute(); err != nil {
		os.Exit(1)
	}
}

func loadServices(ctx context.Context) (*services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		a.Close()
		_ = logger.Sync()
	}
	return &services{sync: a.Sync, upload: a.Upload, provision: a.Provision}, cleanup, nil
}
