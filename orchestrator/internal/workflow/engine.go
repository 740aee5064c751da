// Package workflow implements the event-driven call-to-lead workflow: it
// consumes call events from the bus, drives the lead service and call
// service over HTTP, and publishes the downstream lead lifecycle events.
package workflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/models"
	"github.com/callflow-systems/callflow-stack/common/phone"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/metrics"
)

// LeadClient is the lead service surface the engine depends on.
type LeadClient interface {
	SearchLeads(ctx context.Context, phone string) ([]models.Lead, error)
	CreateLead(ctx context.Context, req *LeadCreateRequest) (string, error)
	AddNote(ctx context.Context, leadID, title, content string) (string, error)
	AttachRecording(ctx context.Context, req *AttachmentRequest) (*AttachmentResult, error)
	ListOwners(ctx context.Context) ([]models.LeadOwner, error)
}

// CallClient is the call service surface the engine depends on.
type CallClient interface {
	FetchRecording(ctx context.Context, recordingID string) (*RecordingContent, error)
}

// Engine subscribes to call events and runs the lead workflow for each
// one. Handlers never return an error for a bad event: malformed or
// out-of-scope events are dropped with a log line so the dispatch loop
// keeps moving.
type Engine struct {
	bus   messaging.Client
	leads LeadClient
	calls CallClient
	log   *logging.Logger

	ownerMu sync.Mutex
	owner   *models.LeadOwner
}

// NewEngine creates a workflow engine. Call Start to subscribe it to the
// bus.
func NewEngine(bus messaging.Client, leads LeadClient, calls CallClient, log *logging.Logger) *Engine {
	return &Engine{
		bus:   bus,
		leads: leads,
		calls: calls,
		log:   log.With(logging.Service("orchestrator")),
	}
}

// Start registers the engine's handlers on the bus. The bus must already
// be connected.
func (e *Engine) Start() error {
	subs := map[string]messaging.Handler{
		messaging.TopicCallLogged:        e.handleCallLogged,
		messaging.TopicLeadCreated:       e.handleLeadEvent,
		messaging.TopicLeadUpdated:       e.handleLeadEvent,
		messaging.TopicRecordingAttached: e.handleRecordingAttached,
	}
	for topic, handler := range subs {
		if err := e.bus.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// SubscribedTopics lists the topics the engine consumes, for the health
// endpoint.
func (e *Engine) SubscribedTopics() []string {
	return []string{
		messaging.TopicCallLogged,
		messaging.TopicLeadCreated,
		messaging.TopicLeadUpdated,
		messaging.TopicRecordingAttached,
	}
}

// ProcessCall runs the workflow for a call event delivered out of band,
// for manual reprocessing through the REST surface.
func (e *Engine) ProcessCall(ctx context.Context, data *messaging.CallLoggedData) error {
	env, err := messaging.NewEnvelope(messaging.TopicCallLogged, data)
	if err != nil {
		return err
	}
	return e.handleCallLogged(ctx, env)
}

func (e *Engine) handleCallLogged(ctx context.Context, env *messaging.Envelope) error {
	metrics.EventsTotal.WithLabelValues(messaging.TopicCallLogged).Inc()

	data, err := env.CallLogged()
	if err != nil {
		metrics.EventsDropped.WithLabelValues("invalid").Inc()
		e.log.Warn("dropping malformed call event", logging.Error(err))
		return nil
	}
	call := &data.Call
	log := e.log.With(logging.CallID(call.ID), logging.ExtensionID(data.ExtensionID))

	if call.Result != models.ResultCompleted && call.Result != models.ResultMissed {
		metrics.EventsDropped.WithLabelValues("result").Inc()
		log.Debug("ignoring call result", "result", string(call.Result))
		return nil
	}

	normalized := phone.Normalize(call.From.PhoneNumber)
	if normalized == "" {
		metrics.EventsDropped.WithLabelValues("no_phone").Inc()
		log.Warn("dropping call without caller number")
		return nil
	}
	log = log.With(logging.Phone(normalized))

	leads, err := e.leads.SearchLeads(ctx, normalized)
	if err != nil {
		metrics.WorkflowErrors.WithLabelValues("search").Inc()
		log.Error("lead search failed", logging.Error(err))
		return err
	}

	if len(leads) > 0 {
		// Existing lead: the first match wins even if the CRM holds
		// several leads with this number.
		lead := leads[0]
		return e.processExistingLead(ctx, log, call, data.ExtensionID, lead.ID)
	}
	return e.processNewLead(ctx, log, call, data.ExtensionID, normalized)
}

func (e *Engine) processExistingLead(ctx context.Context, log *logging.Logger, call *models.CallEvent, extensionID, leadID string) error {
	log = log.With(logging.LeadID(leadID))

	if _, err := e.leads.AddNote(ctx, leadID, noteTitle(call), noteContent(call, extensionID)); err != nil {
		metrics.WorkflowErrors.WithLabelValues("note").Inc()
		log.Error("failed to add call note", logging.Error(err))
		return err
	}
	metrics.NotesAddedTotal.Inc()
	log.Info("call note added to existing lead")

	if call.Result == models.ResultCompleted && call.HasRecording() {
		return e.attachRecording(ctx, log, call, leadID)
	}
	return e.publishLeadProcessed(ctx, leadID, messaging.StatusCompleted, "call note added")
}

func (e *Engine) processNewLead(ctx context.Context, log *logging.Logger, call *models.CallEvent, extensionID, normalized string) error {
	req := &LeadCreateRequest{
		Phone:       normalized,
		FirstName:   models.DefaultLeadName,
		LastName:    models.DefaultLeadName,
		LeadSource:  "Extension " + extensionID,
		Description: noteContent(call, extensionID),
	}
	if name := call.From.Name; name != "" {
		req.LastName = name
	}
	if call.Result == models.ResultMissed {
		req.LeadStatus = string(models.LeadStatusMissedCall)
	} else {
		req.LeadStatus = string(models.LeadStatusAcceptedCall)
	}
	if owner := e.leadOwner(ctx); owner != nil {
		req.OwnerID = owner.ID
	}

	leadID, err := e.leads.CreateLead(ctx, req)
	if err != nil {
		metrics.WorkflowErrors.WithLabelValues("create").Inc()
		log.Error("lead creation failed", logging.Error(err))
		return err
	}
	metrics.LeadsCreatedTotal.Inc()
	log = log.With(logging.LeadID(leadID))
	log.Info("lead created from call", "status", req.LeadStatus)

	if call.Result == models.ResultCompleted && call.HasRecording() {
		return e.attachRecording(ctx, log, call, leadID)
	}
	return e.publishLeadProcessed(ctx, leadID, messaging.StatusCompleted, "lead created")
}

// attachRecording fetches recording content from the call service and
// uploads it to the lead. A fetch failure finishes the lead without the
// recording rather than failing the whole workflow; an upload failure is
// reported as a processing error.
func (e *Engine) attachRecording(ctx context.Context, log *logging.Logger, call *models.CallEvent, leadID string) error {
	log = log.With(logging.RecordingID(call.Recording.ID))

	content, err := e.calls.FetchRecording(ctx, call.Recording.ID)
	if err != nil {
		metrics.WorkflowErrors.WithLabelValues("fetch_recording").Inc()
		log.Error("recording fetch failed, finishing without recording", logging.Error(err))
		return e.publishLeadProcessed(ctx, leadID, messaging.StatusCompleted, "processed without recording")
	}

	fileName := recordingFileName(call, content.ContentType)
	result, err := e.leads.AttachRecording(ctx, &AttachmentRequest{
		LeadID:        leadID,
		FileName:      fileName,
		ContentType:   content.ContentType,
		ContentBase64: base64.StdEncoding.EncodeToString(content.Content),
	})
	if err == nil && !result.Success {
		err = errors.New(result.Message)
	}
	if err != nil {
		metrics.WorkflowErrors.WithLabelValues("attach").Inc()
		log.Error("recording upload failed", logging.Error(err))
		return e.publishLeadProcessed(ctx, leadID, messaging.StatusError, "recording attachment failed: "+err.Error())
	}

	metrics.RecordingsAttachedTotal.Inc()
	log.Info("recording attached", logging.AttachmentID(result.AttachmentID))

	env, err := messaging.NewEnvelope(messaging.TopicRecordingAttached, &messaging.RecordingAttachedData{
		LeadID:       leadID,
		AttachmentID: result.AttachmentID,
		FileName:     fileName,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return err
	}
	return e.bus.Publish(ctx, messaging.TopicRecordingAttached, env)
}

func (e *Engine) handleRecordingAttached(ctx context.Context, env *messaging.Envelope) error {
	metrics.EventsTotal.WithLabelValues(messaging.TopicRecordingAttached).Inc()

	data, err := env.RecordingAttached()
	if err != nil {
		metrics.EventsDropped.WithLabelValues("invalid").Inc()
		e.log.Warn("dropping malformed recording event", logging.Error(err))
		return nil
	}
	return e.publishLeadProcessed(ctx, data.LeadID, messaging.StatusCompleted, "completed with recording attachment")
}

func (e *Engine) handleLeadEvent(ctx context.Context, env *messaging.Envelope) error {
	metrics.EventsTotal.WithLabelValues(env.EventType).Inc()

	data, err := env.LeadEvent()
	if err != nil {
		metrics.EventsDropped.WithLabelValues("invalid").Inc()
		e.log.Warn("dropping malformed lead event", logging.Error(err))
		return nil
	}
	e.log.Info("lead event observed",
		logging.Topic(env.EventType),
		logging.LeadID(data.LeadID),
		logging.Phone(data.Lead.Phone))
	return nil
}

func (e *Engine) publishLeadProcessed(ctx context.Context, leadID, status, message string) error {
	env, err := messaging.NewEnvelope(messaging.TopicLeadProcessed, &messaging.LeadProcessedData{
		LeadID:    leadID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := e.bus.Publish(ctx, messaging.TopicLeadProcessed, env); err != nil {
		metrics.WorkflowErrors.WithLabelValues("publish").Inc()
		e.log.Error("failed to publish lead_processed", logging.LeadID(leadID), logging.Error(err))
		return err
	}
	return nil
}

// leadOwner returns the default owner for new leads: the first user the
// lead service reports. The lookup result is cached for the process
// lifetime; a lookup failure means leads are created unassigned.
func (e *Engine) leadOwner(ctx context.Context) *models.LeadOwner {
	e.ownerMu.Lock()
	defer e.ownerMu.Unlock()
	if e.owner != nil {
		return e.owner
	}
	owners, err := e.leads.ListOwners(ctx)
	if err != nil {
		e.log.Warn("lead owner lookup failed, creating leads unassigned", logging.Error(err))
		return nil
	}
	if len(owners) == 0 {
		return nil
	}
	e.owner = &owners[0]
	return e.owner
}
