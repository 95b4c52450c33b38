package models

import (
	"time"
)

// Sync kinds
const (
	SyncKindCourts   = "courts"
	SyncKindBookings = "bookings"
)

// Sync triggers
const (
	TriggerAPI       = "api"
	TriggerCLI       = "cli"
	TriggerScheduler = "scheduler"
	TriggerNATS      = "nats"
)

// Outcome actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
	ActionError   = "error"
)

// Change - старое и новое значение поля
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// SyncOutcome - результат обработки одной удалённой записи
type SyncOutcome struct {
	Action      string            `json:"action"`
	Identifiers map[string]any    `json:"identifiers"`
	Changes     map[string]Change `json:"changes,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// SyncError - ошибка по конкретной записи
type SyncError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// SyncStats is the aggregate result of one reconciler invocation.
type SyncStats struct {
	Success   bool          `json:"success"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    []SyncError   `json:"errors"`
	DryRun    bool          `json:"dry_run"`
	Discarded int           `json:"discarded"`
	Outcomes  []SyncOutcome `json:"outcomes"`
	Error     string        `json:"error,omitempty"`
}

func NewSyncStats() *SyncStats {
	return &SyncStats{
		Errors:   []SyncError{},
		Outcomes: []SyncOutcome{},
	}
}

// Record appends an outcome and bumps the matching counter.
func (s *SyncStats) Record(o SyncOutcome) {
	switch o.Action {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionSkipped:
		s.Skipped++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// RecordError appends an error outcome for the remote record id.
func (s *SyncStats) RecordError(id string, identifiers map[string]any, err error) {
	s.Errors = append(s.Errors, SyncError{ID: id, Error: err.Error()})
	s.Outcomes = append(s.Outcomes, SyncOutcome{
		Action:      ActionError,
		Identifiers: identifiers,
		Error:       err.Error(),
	})
}

// Fail marks the whole run failed.
func (s *SyncStats) Fail(err error) {
	s.Success = false
	if err != nil {
		s.Error = err.Error()
	}
}

func (s *SyncStats) Processed() int {
	return s.Created + s.Updated + s.Skipped
}

// SyncRun - запуск синхронизации, передаётся слушателям (метрики, NATS, Elasticsearch)
type SyncRun struct {
	ID         string         `json:"run_id"`
	Kind       string         `json:"kind"`
	Trigger    string         `json:"trigger"`
	Params     map[string]any `json:"params,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stats      *SyncStats     `json:"stats"`
}

func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncBookingsRequest - фильтры для синхронизации бронирований
type SyncBookingsRequest struct {
	Date      string `json:"date" form:"date"`
	StartDate string `json:"start_date" form:"start_date"`
	EndDate   string `json:"end_date" form:"end_date"`
	BookingID string `json:"booking_id" form:"booking_id"`
	FieldName string `json:"field_name" form:"field_name"`
	Status    string `json:"status" form:"status"`
}

// Filters returns the non-empty filters as AYO query parameters.
func (r SyncBookingsRequest) Filters() map[string]string {
	filters := map[string]string{}
	add := func(k, v string) {
		if v != "" {
			filters[k] = v
		}
	}
	add("date", r.Date)
	add("start_date", r.StartDate)
	add("end_date", r.EndDate)
	add("booking_id", r.BookingID)
	add("field_name", r.FieldName)
	add("status", r.Status)
	return filters
}

// CourtAyoResponse - связь корта с полем AYO
type CourtAyoResponse struct {
	CourtID    int64   `json:"court_id"`
	Synced     bool    `json:"synced"`
	AyoFieldID *string `json:"ayo_field_id"`
}
