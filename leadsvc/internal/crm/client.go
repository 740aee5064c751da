// Package crm wraps the CRM's REST API: OAuth refresh-token flow with a
// shared access-token cache, lead search and mutation, notes, attachments
// and user listing.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/callflow-systems/callflow-stack/common/models"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/tokencache"
)

// Config parameterizes the CRM client. RefreshToken is the long-lived
// credential; access tokens are minted from it on demand.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	AccountsURL  string        `mapstructure:"accounts_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RefreshToken string        `mapstructure:"refresh_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AttachmentInfo is an existing attachment on a lead, as listed by the
// CRM. Only the filename matters for duplicate detection.
type AttachmentInfo struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
}

// Client talks to the CRM. Access tokens come from the cache when
// present; otherwise the refresh-token grant runs and the result is
// cached for other replicas.
type Client struct {
	cfg    Config
	cache  tokencache.Cache
	client *http.Client

	refreshMu sync.Mutex
}

// New creates a CRM client backed by the given token cache.
func New(cfg Config, cache tokencache.Cache) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = cfg.BaseURL
	}
	return &Client{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{Timeout: timeout},
	}
}

// tokenSkew keeps cached tokens from expiring mid-request.
const tokenSkew = 60 * time.Second

func (c *Client) token(ctx context.Context) (string, error) {
	if token, err := c.cache.Get(ctx); err == nil && token != "" {
		return token, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another request may have refreshed while this one waited.
	if token, err := c.cache.Get(ctx); err == nil && token != "" {
		return token, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AccountsURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token refresh returned status %d: %s", resp.StatusCode, string(raw))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ttl := time.Duration(body.ExpiresIn)*time.Second - tokenSkew
	if ttl > 0 {
		if err := c.cache.Set(ctx, body.AccessToken, ttl); err != nil {
			// A cache failure costs an extra refresh later, nothing more.
			return body.AccessToken, nil
		}
	}
	return body.AccessToken, nil
}

// do performs an authenticated request with retry on transient failures.
// notFoundOK treats 404 and 204 as an empty success, which is how the CRM
// reports empty search results.
func (c *Client) do(ctx context.Context, method, path string, contentType string, reqBody []byte, respDst interface{}, notFoundOK bool) error {
	operation := func() error {
		tok, err := c.token(ctx)
		if err != nil {
			return err
		}

		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case notFoundOK && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent):
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("crm returned status %d for %s", resp.StatusCode, path)
		case resp.StatusCode >= 400:
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return backoff.Permanent(fmt.Errorf("crm returned status %d for %s: %s", resp.StatusCode, path, string(raw)))
		}

		if respDst == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(respDst); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(operation, bo)
}

// SearchLeads returns leads whose phone exactly matches. No match is an
// empty slice, not an error.
func (c *Client) SearchLeads(ctx context.Context, phone string) ([]models.Lead, error) {
	var resp struct {
		Data []models.Lead `json:"data"`
	}
	path := "/v1/leads/search?phone=" + url.QueryEscape(phone)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateLead creates a lead and returns its CRM ID.
func (c *Client) CreateLead(ctx context.Context, lead *models.Lead) (string, error) {
	payload, err := json.Marshal(lead)
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/leads", "application/json", payload, &resp, false); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("crm create returned no lead id")
	}
	return resp.ID, nil
}

// UpdateLead overwrites the given fields on an existing lead.
func (c *Client) UpdateLead(ctx context.Context, leadID string, lead *models.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/v1/leads/"+leadID, "application/json", payload, nil, false)
}

// AddNote appends a note to a lead and returns the note ID.
func (c *Client) AddNote(ctx context.Context, note *models.Note) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"title":   note.Title,
		"content": note.Content,
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/leads/"+note.ParentLeadID+"/notes", "application/json", payload, &resp, false); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListAttachments returns the attachments already on a lead.
func (c *Client) ListAttachments(ctx context.Context, leadID string) ([]AttachmentInfo, error) {
	var resp struct {
		Data []AttachmentInfo `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/leads/"+leadID+"/attachments", "", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UploadAttachment uploads a file to a lead as a multipart form and
// returns the attachment ID.
func (c *Client) UploadAttachment(ctx context.Context, att *models.Attachment) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", att.FileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(att.Content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	path := "/v1/leads/" + att.ParentLeadID + "/attachments"
	if err := c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), buf.Bytes(), &resp, false); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListOwners returns the CRM's active users.
func (c *Client) ListOwners(ctx context.Context) ([]models.LeadOwner, error) {
	var resp struct {
		Users []models.LeadOwner `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/users?type=ActiveUsers", "", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
