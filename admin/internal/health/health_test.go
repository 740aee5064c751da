package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthServer(t *testing.T, status string, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(`{"status":"` + status + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAllHealthy(t *testing.T) {
	a := healthServer(t, "healthy", http.StatusOK)
	b := healthServer(t, "healthy", http.StatusOK)

	checker := NewChecker([]Service{
		{Name: "callsvc", URL: a.URL},
		{Name: "leadsvc", URL: b.URL},
	}, time.Second)

	report := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	require.Len(t, report.Services, 2)
	for _, r := range report.Services {
		assert.True(t, r.Healthy)
	}
}

func TestWorstStatusWins(t *testing.T) {
	a := healthServer(t, "healthy", http.StatusOK)
	b := healthServer(t, "degraded", http.StatusServiceUnavailable)

	checker := NewChecker([]Service{
		{Name: "callsvc", URL: a.URL},
		{Name: "orchestrator", URL: b.URL},
	}, time.Second)

	report := checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestUnreachableServiceIsUnhealthy(t *testing.T) {
	a := healthServer(t, "healthy", http.StatusOK)

	checker := NewChecker([]Service{
		{Name: "callsvc", URL: a.URL},
		{Name: "leadsvc", URL: "http://127.0.0.1:1"},
	}, time.Second)

	report := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)

	// Sorted by name: callsvc first.
	require.Len(t, report.Services, 2)
	assert.Equal(t, "callsvc", report.Services[0].Name)
	assert.True(t, report.Services[0].Healthy)
	assert.False(t, report.Services[1].Healthy)
	assert.NotEmpty(t, report.Services[1].Error)
}

func TestNonJSONBodyFallsBackToHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	t.Cleanup(srv.Close)

	checker := NewChecker([]Service{{Name: "legacy", URL: srv.URL}}, time.Second)
	report := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
}

func TestResultsAreSortedByName(t *testing.T) {
	a := healthServer(t, "healthy", http.StatusOK)

	checker := NewChecker([]Service{
		{Name: "zulu", URL: a.URL},
		{Name: "alpha", URL: a.URL},
		{Name: "mike", URL: a.URL},
	}, time.Second)

	report := checker.Check(context.Background())
	require.Len(t, report.Services, 3)
	assert.Equal(t, "alpha", report.Services[0].Name)
	assert.Equal(t, "mike", report.Services[1].Name)
	assert.Equal(t, "zulu", report.Services[2].Name)
}
