package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/config"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/utils"
)

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app is what every command needs: configuration, logging and the database pool.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	dm     *core.DatabaseManager
	clock  utils.Clock
}

func loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, *slog.Logger, error) {
	logger := newLogger(flags.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplySSM(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("load database credentials: %w", err)
	}
	return cfg, logger, nil
}

func bootstrap(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, logger, err := loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is not set")
	}

	dm, err := core.New(core.Options{
		Dialect:         cfg.Database.Dialect,
		DSN:             cfg.Database.DSN,
		MaxConnections:  cfg.Database.MaxOpenConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
		MultiTenant:     cfg.Database.MultiTenant,
		LogLevel:        core.ParseLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("database connected", "dialect", cfg.Database.Dialect, "multi_tenant", cfg.Database.MultiTenant)

	return &app{
		cfg:    cfg,
		logger: logger,
		dm:     dm,
		clock:  utils.SystemClock{Location: cfg.Attendance.Location},
	}, nil
}

func (a *app) Close() {
	if err := a.dm.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

// service returns an attendance service without notifications, for offline commands.
func (a *app) service() *attendance.Service {
	return attendance.NewService(a.clock, nil, a.logger, a.cfg.Attendance.StandardDayMinutes)
}

// tenants returns only, or every tenant when only is empty.
func (a *app) tenants(ctx context.Context, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	return a.dm.Tenants(ctx)
}
