// Package assistant holds instrumentation shared by the provider clients.
package assistant

import (
	"sync"
	"time"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/metrics"
)

var terminalStatuses = map[string]struct{}{
	"completed":  {},
	"failed":     {},
	"cancelled":  {},
	"incomplete": {},
	"expired":    {},
}

// RunTracker measures assistant run durations from creation to the first
// terminal status observation.
type RunTracker struct {
	provider string

	mu      sync.Mutex
	started map[string]time.Time
}

// NewRunTracker creates a tracker labeled with the provider name.
func NewRunTracker(provider string) *RunTracker {
	return &RunTracker{
		provider: provider,
		started:  make(map[string]time.Time),
	}
}

// RunCreated marks the start of a run.
func (t *RunTracker) RunCreated(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[runID] = time.Now()
}

// Observe inspects a polled status and records the run once it turns
// terminal. Repeated terminal observations of the same run are ignored.
func (t *RunTracker) Observe(runID, status string) {
	if _, terminal := terminalStatuses[status]; !terminal {
		return
	}

	t.mu.Lock()
	startedAt, ok := t.started[runID]
	if ok {
		delete(t.started, runID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	metrics.RecordAssistantRun(t.provider, status, time.Since(startedAt))
}
