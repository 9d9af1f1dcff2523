package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	appcore "axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/metrics"
	"axiapac.com/backoffice/notification/model"
	"axiapac.com/backoffice/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTitleRequired = errors.New("notification title is required")

// Message is what a business operation wants its recipients to be told.
type Message struct {
	Recipients []uint
	Category   string
	Title      string
	Message    string
	ActionURL  *string
	Priority   model.Priority
	Data       map[string]any
}

// Delivery is a persisted Message waiting for the gateways. Tenant is the host the
// notification rows were written under.
type Delivery struct {
	Tenant  string
	Message Message
}

type Dispatcher struct {
	pool   *WorkerPool
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher handing deliveries to pool. A nil pool only persists.
func NewDispatcher(pool *WorkerPool, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pool: pool, logger: logger}
}

// Notify stores one Notification per distinct recipient and queues the push delivery
// without waiting for it. A full queue drops the delivery; the inbox rows remain.
func (d *Dispatcher) Notify(ctx context.Context, db *gorm.DB, msg Message) error {
	msg.Recipients = utils.Unique(msg.Recipients)
	if len(msg.Recipients) == 0 {
		return nil
	}
	if msg.Title == "" {
		return ErrTitleRequired
	}
	if msg.Priority == "" {
		msg.Priority = model.PriorityNormal
	}
	if !msg.Priority.Valid() {
		return fmt.Errorf("invalid notification priority %q", msg.Priority)
	}

	var data datatypes.JSON
	if msg.Data != nil {
		b, err := json.Marshal(msg.Data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		data = b
	}

	rows := utils.Map(msg.Recipients, func(userID uint) model.Notification {
		return model.Notification{
			UserID:    userID,
			Category:  msg.Category,
			Title:     msg.Title,
			Message:   msg.Message,
			ActionURL: msg.ActionURL,
			Priority:  msg.Priority,
			Data:      data,
		}
	})

	tenant := appcore.TenantFromContext(db.Statement.Context)
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to persist notifications: %w", err)
	}

	if d.pool == nil {
		return nil
	}
	if !d.pool.Enqueue(Delivery{Tenant: tenant, Message: msg}) {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification queue full, delivery dropped",
			"category", msg.Category,
			"recipients", msg.Recipients)
		return nil
	}
	metrics.Notifications.WithLabelValues("queued").Inc()
	return nil
}
