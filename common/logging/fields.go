package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService      = "service"
	FieldTopic        = "topic"
	FieldCallID       = "call_id"
	FieldLeadID       = "lead_id"
	FieldRecordingID  = "recording_id"
	FieldAttachmentID = "attachment_id"
	FieldExtensionID  = "extension_id"
	FieldPhone        = "phone"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Topic returns a slog attribute for a message bus topic.
func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// CallID returns a slog attribute for a telephony call ID.
func CallID(id string) slog.Attr {
	return slog.String(FieldCallID, id)
}

// LeadID returns a slog attribute for a CRM lead ID.
func LeadID(id string) slog.Attr {
	return slog.String(FieldLeadID, id)
}

// RecordingID returns a slog attribute for a call recording ID.
func RecordingID(id string) slog.Attr {
	return slog.String(FieldRecordingID, id)
}

// AttachmentID returns a slog attribute for a CRM attachment ID.
func AttachmentID(id string) slog.Attr {
	return slog.String(FieldAttachmentID, id)
}

// ExtensionID returns a slog attribute for a telephony extension ID.
func ExtensionID(id string) slog.Attr {
	return slog.String(FieldExtensionID, id)
}

// Phone returns a slog attribute for a normalized phone number.
func Phone(number string) slog.Attr {
	return slog.String(FieldPhone, number)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
