// Package main is the Lambda that loads clock device exports dropped into the import bucket.
//
// Objects are expected at <prefix>/<tenant>/<name>.csv, the layout the export archive uses;
// single-database deployments put them directly under the prefix.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/config"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/filesystem"
	"axiapac.com/backoffice/utils"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func setup(ctx context.Context, logger *slog.Logger) (*handler, error) {
	cfg, err := config.Load(os.Getenv("BACKOFFICE_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplySSM(ctx, nil); err != nil {
		return nil, fmt.Errorf("load database credentials: %w", err)
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

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	return &handler{
		dm: dm,
		service: attendance.NewService(utils.SystemClock{Location: cfg.Attendance.Location},
			nil, logger, cfg.Attendance.StandardDayMinutes),
		open: func(bucket string) objectReader {
			return filesystem.NewArchive(client, bucket, "")
		},
		prefix:   cfg.Export.S3Prefix,
		location: cfg.Attendance.Location,
		logger:   logger,
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	h, err := setup(context.Background(), logger)
	if err != nil {
		logger.Error("clockin lambda setup failed", "error", err)
		os.Exit(1)
	}
	lambda.Start(h.Handle)
}
