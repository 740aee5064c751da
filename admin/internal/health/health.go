// Package health polls the other CallFlow services' health endpoints
// concurrently and folds the results into one aggregate report.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Service is one polling target.
type Service struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// Result is the outcome of one service's health probe.
type Result struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Report is the aggregate of all probes. Status is the worst individual
// status: any unreachable service makes the stack unhealthy, any degraded
// one makes it degraded.
type Report struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  []Result  `json:"services"`
}

// Statuses ordered from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Checker probes a fixed set of services.
type Checker struct {
	services []Service
	client   *http.Client
}

// NewChecker creates a Checker with the given probe timeout.
func NewChecker(services []Service, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		services: services,
		client:   &http.Client{Timeout: timeout},
	}
}

// Services returns the configured probe targets.
func (c *Checker) Services() []Service {
	return c.services
}

// Check probes every service concurrently and aggregates the results,
// sorted by service name for stable output.
func (c *Checker) Check(ctx context.Context) *Report {
	results := make([]Result, len(c.services))

	var wg sync.WaitGroup
	for i, svc := range c.services {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()
			results[i] = c.probe(ctx, svc)
		}(i, svc)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	report := &Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Services:  results,
	}
	for _, r := range results {
		report.Status = worst(report.Status, r.Status)
	}
	return report
}

func (c *Checker) probe(ctx context.Context, svc Service) Result {
	result := Result{Name: svc.Name, URL: svc.URL}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL+"/health", nil)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		return result
	}
	resp, err := c.client.Do(req)
	result.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status == "" {
		// Fall back to the HTTP status when the body is not ours.
		if resp.StatusCode == http.StatusOK {
			body.Status = StatusHealthy
		} else {
			body.Status = StatusUnhealthy
		}
	}

	result.Status = body.Status
	result.Healthy = result.Status == StatusHealthy
	return result
}

func rank(status string) int {
	switch status {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

func worst(a, b string) string {
	if rank(b) > rank(a) {
		return b
	}
	return a
}
