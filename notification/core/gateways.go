package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	appcore "axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/communication"
	"axiapac.com/backoffice/notification/model"
	"gorm.io/gorm"
)

type PushClient interface {
	Send(endpoint, p256dh, auth string, payload []byte) error
}

type ChatClient interface {
	Post(ctx context.Context, n communication.Notice) error
}

type MailClient interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type pushPayload struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Category  string         `json:"category"`
	ActionURL *string        `json:"action_url,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// PushGateway sends a web push to every subscription of every recipient. Subscriptions
// the push service reports as gone are deleted.
type PushGateway struct {
	client PushClient
}

func NewPushGateway(client PushClient) *PushGateway {
	return &PushGateway{client: client}
}

func (g *PushGateway) Name() string { return "webpush" }

func (g *PushGateway) Deliver(ctx context.Context, db *gorm.DB, d Delivery) error {
	var subs []model.PushSubscription
	if err := db.WithContext(ctx).Where("user_id IN ?", d.Message.Recipients).Find(&subs).Error; err != nil {
		return fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:     d.Message.Title,
		Body:      d.Message.Message,
		Category:  d.Message.Category,
		ActionURL: d.Message.ActionURL,
		Data:      d.Message.Data,
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subs {
		err := g.client.Send(sub.Endpoint, sub.P256DH, sub.Auth, payload)
		if errors.Is(err, communication.ErrSubscriptionExpired) {
			if err := db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", sub.Endpoint).Error; err != nil {
				errs = append(errs, fmt.Errorf("failed to delete expired subscription: %w", err))
			}
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SlackGateway mirrors normal and high priority notifications to the info channel.
type SlackGateway struct {
	client ChatClient
}

func NewSlackGateway(client ChatClient) *SlackGateway {
	return &SlackGateway{client: client}
}

func (g *SlackGateway) Name() string { return "slack" }

func (g *SlackGateway) Deliver(ctx context.Context, db *gorm.DB, d Delivery) error {
	if d.Message.Priority == model.PriorityLow {
		return nil
	}
	notice := communication.Notice{Title: d.Message.Title, Body: d.Message.Message}
	if d.Tenant != "" {
		notice.Context = appcore.TenantSchema(d.Tenant)
	}
	return g.client.Post(ctx, notice)
}

// EmailGateway emails high priority notifications to recipients with an address.
type EmailGateway struct {
	client MailClient
}

func NewEmailGateway(client MailClient) *EmailGateway {
	return &EmailGateway{client: client}
}

func (g *EmailGateway) Name() string { return "email" }

func (g *EmailGateway) Deliver(ctx context.Context, db *gorm.DB, d Delivery) error {
	if d.Message.Priority != model.PriorityHigh {
		return nil
	}

	users, err := appcore.FindUsersByIDs(db.WithContext(ctx), d.Message.Recipients)
	if err != nil {
		return fmt.Errorf("failed to load recipients: %w", err)
	}

	var to []string
	for _, u := range users {
		if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
			to = append(to, *u.Email)
		}
	}

	body := d.Message.Message
	if d.Message.ActionURL != nil {
		body += "\n\n" + *d.Message.ActionURL
	}
	return g.client.Send(ctx, to, d.Message.Title, body)
}
