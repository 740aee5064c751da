package workflow

import (
	"context"
	"fmt"

	"github.com/callflow-systems/callflow-stack/common/models"
)

// LeadCreateRequest is the body of POST /api/leads on the lead service.
type LeadCreateRequest struct {
	Phone       string `json:"phone"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	LeadSource  string `json:"leadSource,omitempty"`
	LeadStatus  string `json:"leadStatus,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
	Description string `json:"description,omitempty"`
}

// AttachmentRequest is the body of POST /api/leads/attachments. Binary
// recording content travels base64-encoded inside JSON.
type AttachmentRequest struct {
	LeadID        string `json:"leadId"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	ContentBase64 string `json:"contentBase64"`
}

// AttachmentResult is the lead service's answer to an attachment upload.
// A duplicate recording yields Success with AttachmentID "existing".
type AttachmentResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AttachmentID string `json:"attachmentId"`
}

// HTTPLeadClient implements LeadClient against the lead service REST API.
type HTTPLeadClient struct {
	*apiClient
}

// NewHTTPLeadClient creates a lead service client for the given base URL.
func NewHTTPLeadClient(baseURL string) *HTTPLeadClient {
	return &HTTPLeadClient{apiClient: newAPIClient("lead service", baseURL)}
}

// SearchLeads returns leads whose phone exactly matches the given
// normalized number.
func (c *HTTPLeadClient) SearchLeads(ctx context.Context, phone string) ([]models.Lead, error) {
	var resp struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Leads   []models.Lead `json:"leads"`
	}
	if err := c.doJSON(ctx, "POST", "/api/leads/search", map[string]string{"phone": phone}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("lead search failed: %s", resp.Message)
	}
	return resp.Leads, nil
}

// CreateLead creates (or, on the lead service side, updates) a lead and
// returns the CRM-assigned lead ID.
func (c *HTTPLeadClient) CreateLead(ctx context.Context, req *LeadCreateRequest) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		LeadID  string `json:"leadId"`
	}
	if err := c.doJSON(ctx, "POST", "/api/leads", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.LeadID == "" {
		return "", fmt.Errorf("lead create failed: %s", resp.Message)
	}
	return resp.LeadID, nil
}

// AddNote appends a call-summary note to a lead.
func (c *HTTPLeadClient) AddNote(ctx context.Context, leadID, title, content string) (string, error) {
	body := map[string]string{
		"leadId":  leadID,
		"content": content,
		"title":   title,
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		NoteID  string `json:"noteId"`
	}
	if err := c.doJSON(ctx, "POST", "/api/leads/notes", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("add note failed: %s", resp.Message)
	}
	return resp.NoteID, nil
}

// AttachRecording uploads a recording to a lead. The lead service
// deduplicates by filename substring before uploading.
func (c *HTTPLeadClient) AttachRecording(ctx context.Context, req *AttachmentRequest) (*AttachmentResult, error) {
	var resp AttachmentResult
	if err := c.doJSON(ctx, "POST", "/api/leads/attachments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListOwners returns the CRM users leads can be assigned to.
func (c *HTTPLeadClient) ListOwners(ctx context.Context) ([]models.LeadOwner, error) {
	var resp struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Owners  []models.LeadOwner `json:"owners"`
	}
	if err := c.doJSON(ctx, "GET", "/api/lead-owners", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list owners failed: %s", resp.Message)
	}
	return resp.Owners, nil
}
