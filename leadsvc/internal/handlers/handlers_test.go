package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/messaging/memory"
	"github.com/callflow-systems/callflow-stack/common/models"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/crm"
)

type fakeCRM struct {
	searchResult []models.Lead
	searchErr    error
	createdID    string
	createErr    error
	updateErr    error
	attachments  []crm.AttachmentInfo
	uploadedID   string
	uploadErr    error
	owners       []models.LeadOwner

	createdLeads  []*models.Lead
	updatedLeadID string
	updatedLead   *models.Lead
	notes         []*models.Note
	uploads       []*models.Attachment
}

func (f *fakeCRM) SearchLeads(ctx context.Context, phone string) ([]models.Lead, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeCRM) CreateLead(ctx context.Context, lead *models.Lead) (string, error) {
	f.createdLeads = append(f.createdLeads, lead)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createdID, nil
}

func (f *fakeCRM) UpdateLead(ctx context.Context, leadID string, lead *models.Lead) error {
	f.updatedLeadID = leadID
	f.updatedLead = lead
	return f.updateErr
}

func (f *fakeCRM) AddNote(ctx context.Context, note *models.Note) (string, error) {
	f.notes = append(f.notes, note)
	return "note-1", nil
}

func (f *fakeCRM) ListAttachments(ctx context.Context, leadID string) ([]crm.AttachmentInfo, error) {
	return f.attachments, nil
}

func (f *fakeCRM) UploadAttachment(ctx context.Context, att *models.Attachment) (string, error) {
	f.uploads = append(f.uploads, att)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadedID, nil
}

func (f *fakeCRM) ListOwners(ctx context.Context) ([]models.LeadOwner, error) {
	return f.owners, nil
}

type leadEvents struct {
	created []*messaging.LeadEventData
	updated []*messaging.LeadEventData
}

func newTestHandler(t *testing.T, fake *fakeCRM) (*Handler, *leadEvents) {
	t.Helper()

	bus := memory.New(slog.Default())
	require.NoError(t, bus.Connect(context.Background()))

	events := &leadEvents{}
	require.NoError(t, bus.Subscribe(messaging.TopicLeadCreated, func(ctx context.Context, env *messaging.Envelope) error {
		data, err := env.LeadEvent()
		require.NoError(t, err)
		events.created = append(events.created, data)
		return nil
	}))
	require.NoError(t, bus.Subscribe(messaging.TopicLeadUpdated, func(ctx context.Context, env *messaging.Envelope) error {
		data, err := env.LeadEvent()
		require.NoError(t, err)
		events.updated = append(events.updated, data)
		return nil
	}))

	return NewHandler(fake, bus, logging.Default()), events
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchLeadsNormalizesPhone(t *testing.T) {
	fake := &fakeCRM{searchResult: []models.Lead{{ID: "lead-1", Phone: "15551234567"}}}
	h, _ := newTestHandler(t, fake)

	rec := postJSON(t, h.SearchLeads, map[string]string{"phone": "(555) 123-4567"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["leads"], 1)
}

func TestSearchLeadsRejectsEmptyPhone(t *testing.T) {
	h, _ := newTestHandler(t, &fakeCRM{})
	rec := postJSON(t, h.SearchLeads, map[string]string{"phone": "ext only"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLeadPublishesCreated(t *testing.T) {
	fake := &fakeCRM{createdID: "lead-7"}
	h, events := newTestHandler(t, fake)

	rec := postJSON(t, h.CreateLead, map[string]string{
		"phone":      "5551234567",
		"firstName":  "Unknown Caller",
		"lastName":   "Unknown Caller",
		"leadStatus": "Accepted Call",
		"ownerId":    "owner-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "lead-7", decodeBody(t, rec)["leadId"])

	require.Len(t, fake.createdLeads, 1)
	assert.Equal(t, "15551234567", fake.createdLeads[0].Phone)
	require.NotNil(t, fake.createdLeads[0].Owner)
	assert.Equal(t, "owner-1", fake.createdLeads[0].Owner.ID)

	require.Len(t, events.created, 1)
	assert.Equal(t, "lead-7", events.created[0].LeadID)
	assert.Empty(t, events.updated)
}

func TestCreateLeadUpdatesExisting(t *testing.T) {
	fake := &fakeCRM{searchResult: []models.Lead{{ID: "lead-2", Phone: "15551234567"}}}
	h, events := newTestHandler(t, fake)

	rec := postJSON(t, h.CreateLead, map[string]string{
		"phone":      "15551234567",
		"leadStatus": "Missed Call",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lead-2", decodeBody(t, rec)["leadId"])

	assert.Equal(t, "lead-2", fake.updatedLeadID)
	assert.Empty(t, fake.createdLeads)
	require.Len(t, events.updated, 1)
	assert.Empty(t, events.created)
}

func TestCreateLeadCRMFailure(t *testing.T) {
	fake := &fakeCRM{createErr: errors.New("crm quota exceeded")}
	h, events := newTestHandler(t, fake)

	rec := postJSON(t, h.CreateLead, map[string]string{"phone": "5551234567"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, events.created)
}

func TestAddNoteRequiresFields(t *testing.T) {
	h, _ := newTestHandler(t, &fakeCRM{})
	rec := postJSON(t, h.AddNote, map[string]string{"leadId": "lead-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddNote(t *testing.T) {
	fake := &fakeCRM{}
	h, _ := newTestHandler(t, fake)

	rec := postJSON(t, h.AddNote, map[string]string{
		"leadId":  "lead-1",
		"title":   "Call on 2026-03-14 09:26:53",
		"content": "Call received",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "note-1", decodeBody(t, rec)["noteId"])

	require.Len(t, fake.notes, 1)
	assert.Equal(t, "lead-1", fake.notes[0].ParentLeadID)
}

func TestAttachRecordingUploads(t *testing.T) {
	fake := &fakeCRM{uploadedID: "att-5"}
	h, _ := newTestHandler(t, fake)

	rec := postJSON(t, h.AttachRecording, map[string]string{
		"leadId":        "lead-1",
		"fileName":      "20260314_092653_recording_rec-7.mp3",
		"contentType":   "audio/mpeg",
		"contentBase64": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "att-5", decodeBody(t, rec)["attachmentId"])

	require.Len(t, fake.uploads, 1)
	assert.Equal(t, []byte("mp3-bytes"), fake.uploads[0].Content)
}

func TestAttachRecordingSkipsDuplicate(t *testing.T) {
	fake := &fakeCRM{
		// Same recording uploaded earlier under a different timestamp.
		attachments: []crm.AttachmentInfo{{ID: "att-1", FileName: "20260313_081000_recording_rec-7.mp3"}},
	}
	h, _ := newTestHandler(t, fake)

	rec := postJSON(t, h.AttachRecording, map[string]string{
		"leadId":        "lead-1",
		"fileName":      "20260314_092653_recording_rec-7.mp3",
		"contentType":   "audio/mpeg",
		"contentBase64": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, DuplicateAttachmentID, body["attachmentId"])
	assert.Empty(t, fake.uploads)
}

func TestAttachRecordingRejectsBadBase64(t *testing.T) {
	h, _ := newTestHandler(t, &fakeCRM{})
	rec := postJSON(t, h.AttachRecording, map[string]string{
		"leadId":        "lead-1",
		"fileName":      "x.mp3",
		"contentBase64": "not base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordingMarker(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"20260314_092653_recording_rec-7.mp3", "recording_rec-7"},
		{"20260313_081000_recording_rec-7.wav", "recording_rec-7"},
		{"voicemail.mp3", "voicemail"},
		{"noextension", "noextension"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recordingMarker(tt.fileName), "file %q", tt.fileName)
	}
}
