// Package models defines the domain types shared by all CallFlow services.
package models

import "time"

// CallDirection is the direction of a telephony call.
type CallDirection string

const (
	DirectionInbound  CallDirection = "Inbound"
	DirectionOutbound CallDirection = "Outbound"
)

// CallResult is the terminal disposition of a call as reported by the
// telephony platform.
type CallResult string

const (
	ResultCompleted CallResult = "Completed"
	ResultMissed    CallResult = "Missed"
	ResultVoicemail CallResult = "Voicemail"
	ResultRejected  CallResult = "Rejected"
	ResultBusy      CallResult = "Busy"
	ResultNoAnswer  CallResult = "NoAnswer"
)

// PhoneInfo identifies one leg of a call.
type PhoneInfo struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
	ExtensionID string `json:"extensionId,omitempty"`
}

// RecordingRef points at a call recording held by the telephony platform.
// ContentURI and Duration are informational; the recording ID is what the
// call service needs to fetch content.
type RecordingRef struct {
	ID         string `json:"id"`
	ContentURI string `json:"contentUri,omitempty"`
	Duration   int    `json:"duration,omitempty"`
}

// CallEvent is a single call log record. It is immutable once published
// to the bus; the ID is globally unique per telephony source.
type CallEvent struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId,omitempty"`
	StartTime time.Time     `json:"startTime"`
	Duration  int           `json:"duration,omitempty"`
	Direction CallDirection `json:"direction"`
	Result    CallResult    `json:"result"`
	From      PhoneInfo     `json:"from"`
	To        PhoneInfo     `json:"to"`
	Recording *RecordingRef `json:"recording,omitempty"`
}

// HasRecording reports whether the call carries a fetchable recording.
func (c *CallEvent) HasRecording() bool {
	return c.Recording != nil && c.Recording.ID != ""
}
