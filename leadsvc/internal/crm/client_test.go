package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callflow-systems/callflow-stack/common/models"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/tokencache"
)

func newCRM(t *testing.T, refreshCalls *atomic.Int32, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	for path, handler := range routes {
		mux.HandleFunc(path, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-1",
		Timeout:      5 * time.Second,
	}, tokencache.NewMemoryCache())
}

func TestRefreshTokenRunsOncePerLifetime(t *testing.T) {
	var refreshCalls atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/users": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"users":[]}`))
		},
	})

	for i := 0; i < 3; i++ {
		_, err := c.ListOwners(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestSearchLeadsEmptyOnNoContent(t *testing.T) {
	var refreshCalls atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/leads/search": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})

	leads, err := c.SearchLeads(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestSearchLeadsDecodesData(t *testing.T) {
	var refreshCalls atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/leads/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "15551234567", r.URL.Query().Get("phone"))
			w.Write([]byte(`{"data":[{"id":"lead-1","phone":"15551234567","lastName":"Doyle"}]}`))
		},
	})

	leads, err := c.SearchLeads(context.Background(), "15551234567")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead-1", leads[0].ID)
	assert.Equal(t, "Doyle", leads[0].LastName)
}

func TestCreateLeadReturnsID(t *testing.T) {
	var refreshCalls atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/leads": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"id":"lead-9"}`))
		},
	})

	id, err := c.CreateLead(context.Background(), &models.Lead{Phone: "15551234567"})
	require.NoError(t, err)
	assert.Equal(t, "lead-9", id)
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	var refreshCalls atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/leads/lead-1/attachments": func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "rec.mp3", header.Filename)
			w.Write([]byte(`{"id":"att-2"}`))
		},
	})

	id, err := c.UploadAttachment(context.Background(), &models.Attachment{
		ParentLeadID: "lead-1",
		FileName:     "rec.mp3",
		ContentType:  "audio/mpeg",
		Content:      []byte("mp3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "att-2", id)
}

func TestServerErrorIsRetried(t *testing.T) {
	var refreshCalls atomic.Int32
	var attempts atomic.Int32
	c := newCRM(t, &refreshCalls, map[string]http.HandlerFunc{
		"/v1/users": func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				http.Error(w, "try again", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"users":[{"id":"owner-1"}]}`))
		},
	})

	owners, err := c.ListOwners(context.Background())
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.GreaterOrEqual(t, attempts.Load(), int32(2))
}
