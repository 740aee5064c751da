package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RecordingContent is a fetched call recording: its MIME type and raw
// bytes, decoded from the call service's base64 transport encoding.
type RecordingContent struct {
	ContentType string
	Content     []byte
}

// HTTPCallClient implements CallClient against the call service REST API.
type HTTPCallClient struct {
	*apiClient
}

// NewHTTPCallClient creates a call service client for the given base URL.
func NewHTTPCallClient(baseURL string) *HTTPCallClient {
	return &HTTPCallClient{apiClient: newAPIClient("call service", baseURL)}
}

// FetchRecording downloads a recording's content from the telephony
// platform via the call service.
func (c *HTTPCallClient) FetchRecording(ctx context.Context, recordingID string) (*RecordingContent, error) {
	var resp struct {
		Success       bool   `json:"success"`
		Message       string `json:"message"`
		ContentType   string `json:"content_type"`
		ContentBase64 string `json:"content_base64"`
	}
	body := map[string]string{"recording_id": recordingID}
	if err := c.doJSON(ctx, "POST", "/api/recordings", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("recording fetch failed: %s", resp.Message)
	}
	content, err := base64.StdEncoding.DecodeString(resp.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("decode recording content: %w", err)
	}
	return &RecordingContent{ContentType: resp.ContentType, Content: content}, nil
}
