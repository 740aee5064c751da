package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/callflow-systems/callflow-stack/common/models"
)

// Envelope is the wire unit on the bus: an event type tag, a publish
// timestamp and a JSON payload. Envelopes are published once and never
// mutated; the payload shape is fixed per event type and decoded through
// the typed accessors below, which reject missing required fields instead
// of crashing the consumer.
type Envelope struct {
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps a payload for publication, stamping the current time.
func NewEnvelope(eventType string, data interface{}) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		EventType: eventType,
		Timestamp: time.Now(),
		Data:      raw,
	}, nil
}

// ValidationError reports a required payload field that was absent from
// an inbound envelope. Consumers drop and log such events.
type ValidationError struct {
	EventType string
	Field     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s event missing required field %q", e.EventType, e.Field)
}

// CallLoggedData is the payload of a call_logged envelope.
type CallLoggedData struct {
	Call          models.CallEvent `json:"call"`
	ExtensionID   string           `json:"extension_id"`
	ProcessedTime time.Time        `json:"processed_time"`
}

// LeadEventData is the payload of lead_created and lead_updated
// envelopes.
type LeadEventData struct {
	LeadID    string      `json:"leadId"`
	Lead      models.Lead `json:"lead"`
	Timestamp time.Time   `json:"timestamp"`
}

// RecordingAttachedData is the payload of a recording_attached envelope.
type RecordingAttachedData struct {
	LeadID       string    `json:"leadId"`
	AttachmentID string    `json:"attachmentId"`
	FileName     string    `json:"fileName"`
	Timestamp    time.Time `json:"timestamp"`
}

// LeadProcessedData is the payload of a lead_processed envelope. Status
// is "completed" or "error".
type LeadProcessedData struct {
	LeadID    string    `json:"leadId"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Lead processing statuses carried in LeadProcessedData.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

func (e *Envelope) decode(expectType string, dst interface{}) error {
	if e.EventType != expectType {
		return fmt.Errorf("expected %s envelope, got %q", expectType, e.EventType)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", expectType, err)
	}
	return nil
}

// CallLogged decodes and validates a call_logged payload.
func (e *Envelope) CallLogged() (*CallLoggedData, error) {
	var data CallLoggedData
	if err := e.decode(TopicCallLogged, &data); err != nil {
		return nil, err
	}
	if data.Call.ID == "" {
		return nil, &ValidationError{EventType: TopicCallLogged, Field: "call.id"}
	}
	if data.ExtensionID == "" {
		return nil, &ValidationError{EventType: TopicCallLogged, Field: "extension_id"}
	}
	return &data, nil
}

// LeadEvent decodes and validates a lead_created or lead_updated payload.
func (e *Envelope) LeadEvent() (*LeadEventData, error) {
	if e.EventType != TopicLeadCreated && e.EventType != TopicLeadUpdated {
		return nil, fmt.Errorf("expected lead_created or lead_updated envelope, got %q", e.EventType)
	}
	var data LeadEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	if data.LeadID == "" {
		return nil, &ValidationError{EventType: e.EventType, Field: "leadId"}
	}
	return &data, nil
}

// RecordingAttached decodes and validates a recording_attached payload.
func (e *Envelope) RecordingAttached() (*RecordingAttachedData, error) {
	var data RecordingAttachedData
	if err := e.decode(TopicRecordingAttached, &data); err != nil {
		return nil, err
	}
	if data.LeadID == "" {
		return nil, &ValidationError{EventType: TopicRecordingAttached, Field: "leadId"}
	}
	if data.AttachmentID == "" {
		return nil, &ValidationError{EventType: TopicRecordingAttached, Field: "attachmentId"}
	}
	if data.FileName == "" {
		return nil, &ValidationError{EventType: TopicRecordingAttached, Field: "fileName"}
	}
	return &data, nil
}

// LeadProcessed decodes and validates a lead_processed payload.
func (e *Envelope) LeadProcessed() (*LeadProcessedData, error) {
	var data LeadProcessedData
	if err := e.decode(TopicLeadProcessed, &data); err != nil {
		return nil, err
	}
	if data.LeadID == "" {
		return nil, &ValidationError{EventType: TopicLeadProcessed, Field: "leadId"}
	}
	if data.Status == "" {
		return nil, &ValidationError{EventType: TopicLeadProcessed, Field: "status"}
	}
	return &data, nil
}
