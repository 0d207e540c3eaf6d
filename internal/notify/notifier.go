package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/manav03panchal/chime/internal/config"
	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

// Notifier hands a notification to a system notification surface.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n model.Notification) error

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// Multi fans a notification out to every notifier concurrently.
type Multi []Notifier

// Notify sends n to all notifiers and joins their errors.
func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var wg sync.WaitGroup
	errs := make([]error, len(m))
	for i, target := range m {
		wg.Add(1)
		go func(idx int, target Notifier) {
			defer wg.Done()
			errs[idx] = target.Notify(ctx, n)
		}(i, target)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Webhook posts notifications to a URL.
type Webhook struct {
	Name      string
	URL       string
	Formatter Formatter
	client    *HTTPClient
}

// NewWebhook creates a webhook notifier from its configuration.
func NewWebhook(cfg config.WebhookConfig, client *HTTPClient) *Webhook {
	var f Formatter
	if cfg.Type == TypeGeneric || cfg.Type == "" {
		f = NewGenericFormatter(cfg.Template)
	} else {
		f = GetFormatter(cfg.Type)
	}
	if client == nil {
		client = NewHTTPClient(0, DefaultRetryDelays...)
	}
	return &Webhook{Name: cfg.Name, URL: cfg.URL, Formatter: f, client: client}
}

// Notify posts n to the webhook.
func (w *Webhook) Notify(ctx context.Context, n model.Notification) error {
	payload, err := w.Formatter.Format(n)
	if err != nil {
		return fmt.Errorf("failed to format notification for %s: %w", w.Name, err)
	}
	res := w.client.Send(ctx, w.URL, w.Formatter.ContentType(), payload)
	if res.Error != nil {
		return fmt.Errorf("webhook %s: %w", w.Name, res.Error)
	}
	return nil
}

// FromConfig builds the notifier described by cfg. It returns nil when
// nothing is enabled.
func FromConfig(cfg config.AlertConfig) Notifier {
	var m Multi
	if cfg.SystemNotifications {
		m = append(m, NewDesktop())
	}
	for _, wh := range cfg.Webhooks {
		if wh.URL == "" {
			continue
		}
		m = append(m, NewWebhook(wh, nil))
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}
