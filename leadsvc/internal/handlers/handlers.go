// Package handlers implements the lead service's REST surface over the
// CRM client and publishes lead lifecycle events to the bus.
package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/callflow-systems/callflow-stack/common/httputil"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/models"
	"github.com/callflow-systems/callflow-stack/common/phone"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/crm"
)

// CRM is the CRM surface the handlers depend on.
type CRM interface {
	SearchLeads(ctx context.Context, phone string) ([]models.Lead, error)
	CreateLead(ctx context.Context, lead *models.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *models.Lead) error
	AddNote(ctx context.Context, note *models.Note) (string, error)
	ListAttachments(ctx context.Context, leadID string) ([]crm.AttachmentInfo, error)
	UploadAttachment(ctx context.Context, att *models.Attachment) (string, error)
	ListOwners(ctx context.Context) ([]models.LeadOwner, error)
}

// DuplicateAttachmentID is returned in place of a real attachment ID when
// the recording is already on the lead and the upload is skipped.
const DuplicateAttachmentID = "existing"

// Handler holds the dependencies of the lead service's HTTP handlers.
type Handler struct {
	crm     CRM
	bus     messaging.Client
	log     *logging.Logger
	started time.Time
}

// NewHandler creates a Handler.
func NewHandler(c CRM, bus messaging.Client, log *logging.Logger) *Handler {
	return &Handler{
		crm:     c,
		bus:     bus,
		log:     log,
		started: time.Now(),
	}
}

// HealthCheck reports service liveness and broker connectivity.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !h.bus.IsConnected() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]interface{}{
		"status":         status,
		"service":        "leadsvc",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"bus_connected":  h.bus.IsConnected(),
	})
}

// SearchLeads finds leads by exact match on the normalized phone number.
func (h *Handler) SearchLeads(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	normalized := phone.Normalize(req.Phone)
	if normalized == "" {
		httputil.WriteError(w, http.StatusBadRequest, "phone is required")
		return
	}

	leads, err := h.crm.SearchLeads(r.Context(), normalized)
	if err != nil {
		h.log.Error("lead search failed", logging.Phone(normalized), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"leads":   leads,
	})
}

// CreateLead creates a lead, or updates the existing one when the phone
// number is already in the CRM. Creation publishes lead_created, update
// publishes lead_updated.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone       string `json:"phone"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		LeadSource  string `json:"leadSource"`
		LeadStatus  string `json:"leadStatus"`
		OwnerID     string `json:"ownerId"`
		Description string `json:"description"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	normalized := phone.Normalize(req.Phone)
	if normalized == "" {
		httputil.WriteError(w, http.StatusBadRequest, "phone is required")
		return
	}

	lead := &models.Lead{
		Phone:       normalized,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		LeadSource:  req.LeadSource,
		LeadStatus:  models.LeadStatus(req.LeadStatus),
		Description: req.Description,
	}
	if req.OwnerID != "" {
		lead.Owner = &models.LeadOwner{ID: req.OwnerID}
	}

	existing, err := h.crm.SearchLeads(r.Context(), normalized)
	if err != nil {
		h.log.Error("lead lookup before create failed", logging.Phone(normalized), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	if len(existing) > 0 {
		leadID := existing[0].ID
		if err := h.crm.UpdateLead(r.Context(), leadID, lead); err != nil {
			h.log.Error("lead update failed", logging.LeadID(leadID), logging.Error(err))
			httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		lead.ID = leadID
		h.publishLeadEvent(r.Context(), messaging.TopicLeadUpdated, lead)
		h.log.Info("lead updated", logging.LeadID(leadID), logging.Phone(normalized))
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"leadId":  leadID,
		})
		return
	}

	leadID, err := h.crm.CreateLead(r.Context(), lead)
	if err != nil {
		h.log.Error("lead create failed", logging.Phone(normalized), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	lead.ID = leadID
	h.publishLeadEvent(r.Context(), messaging.TopicLeadCreated, lead)
	h.log.Info("lead created", logging.LeadID(leadID), logging.Phone(normalized))
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"leadId":  leadID,
	})
}

// AddNote appends a note to a lead.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID  string `json:"leadId"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.LeadID == "" || req.Content == "" {
		httputil.WriteError(w, http.StatusBadRequest, "leadId and content are required")
		return
	}

	noteID, err := h.crm.AddNote(r.Context(), &models.Note{
		ParentLeadID: req.LeadID,
		Title:        req.Title,
		Content:      req.Content,
	})
	if err != nil {
		h.log.Error("add note failed", logging.LeadID(req.LeadID), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"noteId":  noteID,
	})
}

// AttachRecording uploads a recording to a lead, unless an attachment
// with the same recording marker already exists. Duplicates report
// success with the attachment ID "existing" and skip the upload.
func (h *Handler) AttachRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID        string `json:"leadId"`
		FileName      string `json:"fileName"`
		ContentType   string `json:"contentType"`
		ContentBase64 string `json:"contentBase64"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.LeadID == "" || req.FileName == "" || req.ContentBase64 == "" {
		httputil.WriteError(w, http.StatusBadRequest, "leadId, fileName and contentBase64 are required")
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "contentBase64 is not valid base64")
		return
	}

	existing, err := h.crm.ListAttachments(r.Context(), req.LeadID)
	if err != nil {
		h.log.Error("attachment listing failed", logging.LeadID(req.LeadID), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	marker := recordingMarker(req.FileName)
	for _, att := range existing {
		if strings.Contains(att.FileName, marker) {
			h.log.Info("duplicate recording, skipping upload",
				logging.LeadID(req.LeadID), "file_name", req.FileName)
			httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"success":      true,
				"message":      "recording already attached",
				"attachmentId": DuplicateAttachmentID,
			})
			return
		}
	}

	attachmentID, err := h.crm.UploadAttachment(r.Context(), &models.Attachment{
		ParentLeadID: req.LeadID,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		Content:      content,
	})
	if err != nil {
		h.log.Error("attachment upload failed", logging.LeadID(req.LeadID), logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	h.log.Info("recording attached",
		logging.LeadID(req.LeadID), logging.AttachmentID(attachmentID))
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"attachmentId": attachmentID,
	})
}

// ListOwners returns the CRM users leads can be assigned to.
func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.crm.ListOwners(r.Context())
	if err != nil {
		h.log.Error("owner listing failed", logging.Error(err))
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if owners == nil {
		owners = []models.LeadOwner{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"owners":  owners,
	})
}

// recordingMarker extracts the stable "recording_<id>" portion of an
// attachment filename, which identifies the recording across differently
// timestamped uploads. A filename without the marker dedups on its full
// name minus extension.
func recordingMarker(fileName string) string {
	name := fileName
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	if idx := strings.Index(name, "recording_"); idx >= 0 {
		return name[idx:]
	}
	return name
}

func (h *Handler) publishLeadEvent(ctx context.Context, topic string, lead *models.Lead) {
	env, err := messaging.NewEnvelope(topic, &messaging.LeadEventData{
		LeadID:    lead.ID,
		Lead:      *lead,
		Timestamp: time.Now(),
	})
	if err == nil {
		err = h.bus.Publish(ctx, topic, env)
	}
	if err != nil {
		// The CRM write already succeeded; the event is best-effort.
		h.log.Error("failed to publish lead event",
			logging.Topic(topic), logging.LeadID(lead.ID), logging.Error(err))
	}
}
