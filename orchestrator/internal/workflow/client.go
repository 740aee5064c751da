package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// APIError is a non-2xx response from a collaborating service. Workflow
// steps treat it as a step failure, log it and continue where safe.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// apiClient is the shared HTTP plumbing for the lead and call service
// clients: JSON in, JSON out, bounded exponential-backoff retry on
// transport errors, 429 and 5xx.
type apiClient struct {
	service string
	baseURL string
	client  *http.Client
	retries uint64
}

func newAPIClient(service, baseURL string) *apiClient {
	return &apiClient{
		service: service,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retries: 2, // 3 attempts total
	}
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, reqBody, respDst interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
	}

	operation := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Retryable; body drained by the deferred close.
			return &APIError{Service: c.service, StatusCode: resp.StatusCode}
		}
		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(&APIError{Service: c.service, StatusCode: resp.StatusCode, Body: string(raw)})
		}

		if respDst == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(respDst); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	return backoff.Retry(operation, bo)
}
