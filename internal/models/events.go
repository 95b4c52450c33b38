package models

import "time"

// NATS subjects
const (
	SubjectSyncRequested = "ayo.sync.requested"
	SubjectSyncCompleted = "ayo.sync.completed"
)

// SyncRequestedEvent asks a worker to run a sync on demand
type SyncRequestedEvent struct {
	Kind        string            `json:"kind"`
	ActiveOnly  *bool             `json:"active_only,omitempty"`
	DryRun      bool              `json:"dry_run,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
	RequestedBy string            `json:"requested_by,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// SyncCompletedEvent is published after every sync run, successful or not
type SyncCompletedEvent struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Trigger    string    `json:"trigger"`
	Success    bool      `json:"success"`
	DryRun     bool      `json:"dry_run"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
	Discarded  int       `json:"discarded"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewSyncCompletedEvent(run *SyncRun) SyncCompletedEvent {
	ev := SyncCompletedEvent{
		RunID:      run.ID,
		Kind:       run.Kind,
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if s := run.Stats; s != nil {
		ev.Success = s.Success
		ev.DryRun = s.DryRun
		ev.Created = s.Created
		ev.Updated = s.Updated
		ev.Skipped = s.Skipped
		ev.Errors = len(s.Errors)
		ev.Discarded = s.Discarded
		ev.Error = s.Error
	}
	return ev
}
