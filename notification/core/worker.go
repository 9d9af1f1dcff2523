package core

import (
	"context"
	"log/slog"
	"sync"

	appcore "axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/metrics"
	"gorm.io/gorm"
)

// Gateway delivers a persisted notification through one channel.
type Gateway interface {
	Name() string
	Deliver(ctx context.Context, db *gorm.DB, d Delivery) error
}

// WorkerPool drains deliveries in the background so that a slow gateway never holds up
// the request that raised the notification.
type WorkerPool struct {
	size     int
	jobs     chan Delivery
	dm       *appcore.DatabaseManager
	gateways []Gateway
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewWorkerPool(size, queueSize int, dm *appcore.DatabaseManager, logger *slog.Logger, gateways ...Gateway) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		size:     size,
		jobs:     make(chan Delivery, queueSize),
		dm:       dm,
		gateways: gateways,
		logger:   logger,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.logger.Debug("notification worker started", "worker", id)
	for {
		select {
		case d := <-wp.jobs:
			wp.process(ctx, d)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Enqueue hands d to the workers without blocking. It reports false when the queue is full.
func (wp *WorkerPool) Enqueue(d Delivery) bool {
	select {
	case wp.jobs <- d:
		return true
	default:
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Delivery {
	return wp.jobs
}

func (wp *WorkerPool) process(ctx context.Context, d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("notification delivery panicked", "panic", r, "category", d.Message.Category)
		}
	}()

	err := wp.dm.Exec(ctx, d.Tenant, func(db *gorm.DB) error {
		for _, g := range wp.gateways {
			if err := g.Deliver(ctx, db, d); err != nil {
				metrics.PushDeliveries.WithLabelValues(g.Name(), "failed").Inc()
				wp.logger.Warn("notification delivery failed",
					"gateway", g.Name(),
					"category", d.Message.Category,
					"recipients", d.Message.Recipients,
					"error", err)
				continue
			}
			metrics.PushDeliveries.WithLabelValues(g.Name(), "sent").Inc()
		}
		return nil
	})
	if err != nil {
		wp.logger.Error("notification delivery could not open tenant database",
			"tenant", d.Tenant,
			"error", err)
	}
}
