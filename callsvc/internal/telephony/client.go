// Package telephony wraps the telephony platform's REST API: OAuth token
// management, call-queue extension listing, per-extension call logs and
// recording content download.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/callflow-systems/callflow-stack/common/models"
)

// Extension is a telephony extension. The poller only processes
// extensions of type "CallQueue".
type Extension struct {
	ID     string `json:"id"`
	Number string `json:"extensionNumber"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Config parameterizes the platform client.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Client talks to the telephony platform. Access tokens are requested
// with the client-credentials grant and cached until shortly before
// expiry; all API calls retry transient failures with bounded backoff.
type Client struct {
	cfg    Config
	client *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a platform client. No network traffic happens until the
// first API call.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// tokenSkew is how long before expiry a cached token is refreshed.
const tokenSkew = 60 * time.Second

func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token request returned status %d: %s", resp.StatusCode, string(raw))
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

	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// get performs an authenticated GET and returns the response body.
// 401 invalidates the cached token so the retry re-authenticates.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	var payload []byte
	var contentType string

	operation := func() error {
		tok, err := c.token(ctx)
		if err != nil {
			return err
		}

		u := c.cfg.BaseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.tokenMu.Lock()
			c.accessToken = ""
			c.tokenMu.Unlock()
			return fmt.Errorf("platform rejected token for %s", path)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("platform returned status %d for %s", resp.StatusCode, path)
		case resp.StatusCode >= 400:
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return backoff.Permanent(fmt.Errorf("platform returned status %d for %s: %s", resp.StatusCode, path, string(raw)))
		}

		payload, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, "", err
	}
	return payload, contentType, nil
}

// Extensions lists the account's extensions.
func (c *Client) Extensions(ctx context.Context) ([]Extension, error) {
	raw, _, err := c.get(ctx, "/v1/account/extensions", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Records []Extension `json:"records"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode extensions response: %w", err)
	}
	return body.Records, nil
}

// CallQueues lists only the extensions of type CallQueue.
func (c *Client) CallQueues(ctx context.Context) ([]Extension, error) {
	all, err := c.Extensions(ctx)
	if err != nil {
		return nil, err
	}
	queues := make([]Extension, 0, len(all))
	for _, ext := range all {
		if ext.Type == "CallQueue" {
			queues = append(queues, ext)
		}
	}
	return queues, nil
}

// CallLog returns an extension's inbound call records since the given
// time, most recent last.
func (c *Client) CallLog(ctx context.Context, extensionID string, since time.Time) ([]models.CallEvent, error) {
	query := url.Values{
		"dateFrom":  {since.UTC().Format(time.RFC3339)},
		"direction": {"Inbound"},
		"view":      {"Detailed"},
	}
	raw, _, err := c.get(ctx, "/v1/account/extensions/"+extensionID+"/call-log", query)
	if err != nil {
		return nil, err
	}
	var body struct {
		Records []models.CallEvent `json:"records"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode call log response: %w", err)
	}
	return body.Records, nil
}

// RecordingContent downloads a recording's raw content and MIME type.
func (c *Client) RecordingContent(ctx context.Context, recordingID string) (string, []byte, error) {
	raw, contentType, err := c.get(ctx, "/v1/recordings/"+recordingID+"/content", nil)
	if err != nil {
		return "", nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, raw, nil
}
