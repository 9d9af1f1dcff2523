// Package jobs runs the scheduled maintenance of attendance data.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/utils"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Alerter reports job failures to a human channel.
type Alerter interface {
	Error(message string) error
}

// Recalculator heals stale attendances of the previous day in every tenant.
type Recalculator struct {
	Dm      *core.DatabaseManager
	Service *attendance.Service
	Clock   utils.Clock
	Alerter Alerter
	Logger  *slog.Logger
}

// RunOnce sweeps yesterday's rows. A failing tenant is alerted and skipped; the joined
// errors are returned once every tenant has been visited.
func (r *Recalculator) RunOnce(ctx context.Context) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tenants, err := r.Dm.Tenants(ctx)
	if err != nil {
		return 0, err
	}

	date := r.Clock.Now().AddDate(0, 0, -1).Format(utils.DateLayout)
	total := 0
	var errs []error
	for _, tenant := range tenants {
		var count int
		err := r.Dm.Exec(ctx, tenant, func(db *gorm.DB) error {
			var err error
			count, err = r.Service.Recalculate(ctx, db, date, date, false)
			return err
		})
		total += count
		if err != nil {
			err = fmt.Errorf("tenant %q: %w", tenant, err)
			errs = append(errs, err)
			logger.Error("attendance recalculation failed", "tenant", tenant, "date", date, "error", err)
			if r.Alerter != nil {
				if aerr := r.Alerter.Error("attendance recalculation failed: " + err.Error()); aerr != nil {
					logger.Warn("failed to send alert", "error", aerr)
				}
			}
			continue
		}
		logger.Info("attendance recalculated", "tenant", tenant, "date", date, "rows", count)
	}
	return total, errors.Join(errs...)
}

// cronLogger routes the scheduler's own messages into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron "+msg, append(keysAndValues, "error", err)...)
}

// Schedule registers job on a cron with the given spec. Overlapping runs are skipped.
// The caller starts and stops the returned cron.
func Schedule(spec string, timeout time.Duration, logger *slog.Logger, job func(ctx context.Context)) (*cron.Cron, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}
