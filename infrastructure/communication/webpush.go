package communication

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSender sends one web push message.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real PushSender backed by webpush-go.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// ErrSubscriptionExpired is returned when the push service answers 410 Gone.
var ErrSubscriptionExpired = errors.New("push subscription expired")

type WebPush struct {
	sender  PushSender
	options *webpush.Options
}

func NewWebPush(publicKey, privateKey, subject string, ttl int) *WebPush {
	return &WebPush{
		sender: &WebPushSender{},
		options: &webpush.Options{
			Subscriber:      subject,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             ttl,
		},
	}
}

// WithSender replaces the transport, used by tests.
func (w *WebPush) WithSender(sender PushSender) *WebPush {
	w.sender = sender
	return w
}

func (w *WebPush) PublicKey() string {
	return w.options.VAPIDPublicKey
}

func (w *WebPush) Configured() bool {
	return w.options.VAPIDPublicKey != "" && w.options.VAPIDPrivateKey != ""
}

func (w *WebPush) Send(endpoint, p256dh, auth string, payload []byte) error {
	sub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}

	resp, err := w.sender.Send(payload, sub, w.options)
	if err != nil {
		return fmt.Errorf("failed to send push to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrSubscriptionExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d for %s", resp.StatusCode, endpoint)
	}
	return nil
}
