package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/eventapi"
)

// apiCheckTimeout bounds the events API check done by /readyz.
const apiCheckTimeout = 2 * time.Second

// HealthCheck is the /readyz response body.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single readiness check
type CheckResult struct {
	Status    string            `json:"status"` // "pass", "warn" or "fail"
	Message   string            `json:"message,omitempty"`
	LatencyMs int64             `json:"latency_ms,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Readiness is what /readyz inspects. *ui.App implements it.
type Readiness interface {
	Mounted() bool
	Client() *eventapi.Client
}

// Healthz reports that the process is up. It never looks at dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz reports whether the console serves pages: the UI root must be
// mounted (503 "unhealthy" before). Once mounted, the events API is listed
// once; an unreachable or refusing API marks the console "degraded" but
// keeps it ready, since pages still render an error for it.
func Readyz(root Readiness, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		checks := map[string]CheckResult{}
		if root == nil || !root.Mounted() {
			checks["ui"] = CheckResult{Status: "fail", Message: "UI root not mounted yet"}
		} else {
			checks["ui"] = CheckResult{Status: "pass", Message: "UI root mounted"}
			checks["events_api"] = checkEventsAPI(r.Context(), root.Client())
		}

		overall, code := "healthy", http.StatusOK
		for _, c := range checks {
			if c.Status == "fail" {
				overall, code = "unhealthy", http.StatusServiceUnavailable
				break
			}
			if c.Status == "warn" {
				overall = "degraded"
			}
		}

		respondJSON(w, code, HealthCheck{
			Status:    overall,
			Version:   version,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func checkEventsAPI(ctx context.Context, client *eventapi.Client) CheckResult {
	if client == nil {
		return CheckResult{Status: "warn", Message: "no events API client"}
	}
	ctx, cancel := context.WithTimeout(ctx, apiCheckTimeout)
	defer cancel()

	start := time.Now()
	resp, err := client.GetAllEvents(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "warn",
			Message:   "events API unreachable",
			LatencyMs: latency,
			Details:   map[string]string{"error": err.Error()},
		}
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CheckResult{
			Status:    "warn",
			Message:   fmt.Sprintf("events API answered %d", resp.StatusCode),
			LatencyMs: latency,
		}
	}
	return CheckResult{Status: "pass", Message: "events API reachable", LatencyMs: latency}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
