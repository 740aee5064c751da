// Package notify turns lead_processed events into notification emails.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/notifier/internal/mailer"
	"github.com/callflow-systems/callflow-stack/notifier/internal/templates"
)

// Settings is the runtime notification configuration. It is readable and
// replaceable through the REST surface while events flow.
type Settings struct {
	Enabled    bool                          `json:"enabled" mapstructure:"enabled"`
	Recipients []string                      `json:"recipients" mapstructure:"recipients"`
	Cc         []string                      `json:"cc" mapstructure:"cc"`
	Bcc        []string                      `json:"bcc" mapstructure:"bcc"`
	Templates  map[string]templates.Template `json:"templates" mapstructure:"templates"`
}

// Notifier subscribes to lead_processed and sends one email per
// delivered event. Delivery is intentionally not deduplicated: the bus is
// at-least-once, so a redelivered event means a repeated email rather
// than a possibly-missed one.
type Notifier struct {
	sender mailer.Sender
	log    *logging.Logger

	mu       sync.RWMutex
	settings Settings
}

// New creates a Notifier with the given initial settings. Missing
// templates are filled from the defaults.
func New(sender mailer.Sender, settings Settings, log *logging.Logger) *Notifier {
	if settings.Templates == nil {
		settings.Templates = templates.Defaults()
	} else {
		for key, tpl := range templates.Defaults() {
			if _, ok := settings.Templates[key]; !ok {
				settings.Templates[key] = tpl
			}
		}
	}
	return &Notifier{
		sender:   sender,
		settings: settings,
		log:      log.With(logging.Service("notifier")),
	}
}

// Start registers the notifier on the bus. The bus must already be
// connected.
func (n *Notifier) Start(bus messaging.Subscriber) error {
	return bus.Subscribe(messaging.TopicLeadProcessed, n.HandleLeadProcessed)
}

// Settings returns a copy of the current settings.
func (n *Notifier) Settings() Settings {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.settings
}

// UpdateSettings replaces the runtime settings. Templates not present in
// the update keep their previous value.
func (n *Notifier) UpdateSettings(s Settings) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s.Templates == nil {
		s.Templates = n.settings.Templates
	} else {
		for key, tpl := range n.settings.Templates {
			if _, ok := s.Templates[key]; !ok {
				s.Templates[key] = tpl
			}
		}
	}
	n.settings = s
}

// HandleLeadProcessed sends the notification email for one event.
// Malformed events are dropped with a log line; disabled notifications
// are a silent no-op.
func (n *Notifier) HandleLeadProcessed(ctx context.Context, env *messaging.Envelope) error {
	data, err := env.LeadProcessed()
	if err != nil {
		n.log.Warn("dropping malformed lead_processed event", logging.Error(err))
		return nil
	}

	settings := n.Settings()
	if !settings.Enabled {
		n.log.Debug("notifications disabled, skipping", logging.LeadID(data.LeadID))
		return nil
	}
	if len(settings.Recipients) == 0 {
		n.log.Warn("no recipients configured, skipping", logging.LeadID(data.LeadID))
		return nil
	}

	tpl := templates.ForStatus(settings.Templates, data.Status)
	subject, body := templates.Render(tpl, templates.Fields{
		LeadID:    data.LeadID,
		Status:    data.Status,
		Message:   data.Message,
		Timestamp: data.Timestamp.Format(time.RFC1123),
	})

	msg := &mailer.Message{
		To:      settings.Recipients,
		Cc:      settings.Cc,
		Bcc:     settings.Bcc,
		Subject: subject,
		Body:    body,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.Error("notification send failed",
			logging.LeadID(data.LeadID), logging.Error(err))
		return fmt.Errorf("send notification for lead %s: %w", data.LeadID, err)
	}

	n.log.Info("notification sent",
		logging.LeadID(data.LeadID), "status", data.Status, "recipients", len(settings.Recipients))
	return nil
}
