// Package poller periodically pulls call logs from the telephony
// platform and publishes one call_logged envelope per new call.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/callflow-systems/callflow-stack/callsvc/internal/telephony"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/models"
)

// Platform is the telephony surface the poller depends on.
type Platform interface {
	CallQueues(ctx context.Context) ([]telephony.Extension, error)
	CallLog(ctx context.Context, extensionID string, since time.Time) ([]models.CallEvent, error)
}

// seenTTL is how long processed call IDs are remembered. It must exceed
// the widest hours-back window or calls get republished.
const seenTTL = 48 * time.Hour

// Poller drives the call ingestion loop. Calls already published are
// tracked by ID so overlapping poll windows stay idempotent.
type Poller struct {
	platform  Platform
	bus       messaging.Publisher
	log       *logging.Logger
	interval  time.Duration
	hoursBack int

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a poller. interval is the period of the background loop;
// hoursBack is the default lookback window per poll.
func New(platform Platform, bus messaging.Publisher, log *logging.Logger, interval time.Duration, hoursBack int) *Poller {
	return &Poller{
		platform:  platform,
		bus:       bus,
		log:       log.With(logging.Service("callsvc")),
		interval:  interval,
		hoursBack: hoursBack,
		seen:      make(map[string]time.Time),
	}
}

// Run polls on the configured interval until the context is canceled.
// The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if _, err := p.PollOnce(ctx, p.hoursBack); err != nil {
		p.log.Error("call log poll failed", logging.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx, p.hoursBack); err != nil {
				p.log.Error("call log poll failed", logging.Error(err))
			}
		}
	}
}

// PollOnce fetches call logs for every call queue over the given
// hours-back window and publishes the calls not seen before. It returns
// the number of envelopes published. A failure on one extension does not
// stop the others.
func (p *Poller) PollOnce(ctx context.Context, hoursBack int) (int, error) {
	if hoursBack <= 0 {
		hoursBack = p.hoursBack
	}
	since := time.Now().Add(-time.Duration(hoursBack) * time.Hour)

	queues, err := p.platform.CallQueues(ctx)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ext := range queues {
		calls, err := p.platform.CallLog(ctx, ext.ID, since)
		if err != nil {
			p.log.Error("call log fetch failed",
				logging.ExtensionID(ext.ID), logging.Error(err))
			continue
		}
		for i := range calls {
			call := &calls[i]
			if !p.markSeen(call.ID) {
				continue
			}
			if err := p.publish(ctx, call, ext.ID); err != nil {
				p.unmark(call.ID)
				p.log.Error("failed to publish call event",
					logging.CallID(call.ID), logging.Error(err))
				continue
			}
			published++
		}
	}

	p.prune()
	p.log.Info("call log poll complete",
		"queues", len(queues), "published", published, "hours_back", hoursBack)
	return published, nil
}

func (p *Poller) publish(ctx context.Context, call *models.CallEvent, extensionID string) error {
	env, err := messaging.NewEnvelope(messaging.TopicCallLogged, &messaging.CallLoggedData{
		Call:          *call,
		ExtensionID:   extensionID,
		ProcessedTime: time.Now(),
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, messaging.TopicCallLogged, env)
}

// markSeen records the call ID and reports whether it was new.
func (p *Poller) markSeen(callID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[callID]; ok {
		return false
	}
	p.seen[callID] = time.Now()
	return true
}

func (p *Poller) unmark(callID string) {
	p.mu.Lock()
	delete(p.seen, callID)
	p.mu.Unlock()
}

func (p *Poller) prune() {
	cutoff := time.Now().Add(-seenTTL)
	p.mu.Lock()
	for id, at := range p.seen {
		if at.Before(cutoff) {
			delete(p.seen, id)
		}
	}
	p.mu.Unlock()
}
