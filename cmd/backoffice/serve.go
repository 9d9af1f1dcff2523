package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/infrastructure/communication"
	"axiapac.com/backoffice/infrastructure/filesystem"
	"axiapac.com/backoffice/jobs"
	notification "axiapac.com/backoffice/notification/core"
	"axiapac.com/backoffice/security"
	"axiapac.com/backoffice/web/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the notification workers and the scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()
			if port > 0 {
				a.cfg.Server.Port = port
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set")
	}
	secret, err := security.DecodeSecret(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to decode JWT secret: %w", err)
	}

	var slack *communication.Slack
	if cfg.Slack.Token != "" {
		slack = communication.NewSlack(cfg.Slack.Token, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannelID,
			ErrorChannelID: cfg.Slack.ErrorChannelID,
		})
	}

	var gateways []notification.Gateway
	push := communication.NewWebPush(cfg.Push.PublicKey, cfg.Push.PrivateKey, cfg.Push.Subject, cfg.Push.TTL)
	if push.Configured() {
		gateways = append(gateways, notification.NewPushGateway(push))
	}
	if slack != nil {
		gateways = append(gateways, notification.NewSlackGateway(slack))
	}
	if cfg.Email.Enabled {
		email, err := communication.ConnectEmail(ctx, cfg.Email.From)
		if err != nil {
			return err
		}
		gateways = append(gateways, notification.NewEmailGateway(email))
	}
	a.logger.Info("notification gateways", "count", len(gateways))

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool := notification.NewWorkerPool(cfg.Notification.Workers, cfg.Notification.QueueSize, a.dm, a.logger, gateways...)
	pool.Start(workerCtx)
	defer func() {
		stopWorkers()
		pool.Wait()
	}()

	service := attendance.NewService(a.clock, notification.NewDispatcher(pool, a.logger), a.logger, cfg.Attendance.StandardDayMinutes)

	deps := server.Deps{
		Config:     cfg,
		Dm:         a.dm,
		Attendance: service,
		Clock:      a.clock,
		JWTSecret:  secret,
		Logger:     a.logger,
	}
	if cfg.Export.S3Bucket != "" {
		archive, err := filesystem.ConnectArchive(ctx, cfg.Export.S3Bucket, cfg.Export.S3Prefix)
		if err != nil {
			return err
		}
		deps.Archive = archive
	}

	if cfg.Jobs.Enabled {
		recalculator := &jobs.Recalculator{
			Dm:      a.dm,
			Service: service,
			Clock:   a.clock,
			Logger:  a.logger,
		}
		if slack != nil {
			recalculator.Alerter = slack
		}
		scheduler, err := jobs.Schedule(cfg.Jobs.RecalculateSchedule, 30*time.Minute, a.logger, func(ctx context.Context) {
			_, _ = recalculator.RunOnce(ctx)
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		a.logger.Info("recalculation job scheduled", "schedule", cfg.Jobs.RecalculateSchedule)
	}

	gin.SetMode(gin.ReleaseMode)
	return server.Run(ctx, server.New(deps), cfg.Server.Port, a.logger)
}
