package gateway

import (
	"time"

	"github.com/user/roombot/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks the dispatch of one message event to the agent.
type Run struct {
	ID        types.RunID
	Event     types.MessageEvent
	Status    RunStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Error     error
}

// NewRun creates a Run in the Queued state for the given event.
func NewRun(event types.MessageEvent) *Run {
	return &Run{
		ID:        types.NewRunID(),
		Event:     event,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Start marks the run as running.
func (r *Run) Start() {
	now := time.Now()
	r.StartedAt = &now
	r.Status = RunStatusRunning
}

// Finish records the outcome of the run.
func (r *Run) Finish(err error) {
	now := time.Now()
	r.EndedAt = &now
	r.Error = err
	if err != nil {
		r.Status = RunStatusFailed
		return
	}
	r.Status = RunStatusComplete
}

// Duration is the time spent running, or zero if the run has not finished.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(*r.StartedAt)
}
