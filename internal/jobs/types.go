// Package jobs defines asynchronous document processing jobs and the
// queue and store abstractions that carry them.
package jobs

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxRetries is applied to jobs published without a retry budget.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by stores for an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessDocumentJob asks a worker to run the processing pipeline for one
// uploaded document.
type ProcessDocumentJob struct {
	JobID      string    `json:"job_id"`
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Status     JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Clone returns a deep copy of j.
func (j *ProcessDocumentJob) Clone() *ProcessDocumentJob {
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Handler processes a job. Errors are retried unless wrapped with Permanent.
type Handler func(ctx context.Context, job *ProcessDocumentJob) error

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *ProcessDocumentJob) error
	Close() error
}

// Consumer runs a handler over queued jobs.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler Handler) error
	// Stop stops accepting work and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// Store records job state so it can be queried through the API.
type Store interface {
	SaveJob(ctx context.Context, job *ProcessDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessDocumentJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*ProcessDocumentJob, error)
}

// Filter narrows ListJobs. Zero fields match everything.
type Filter struct {
	UserID     string
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}

// Matches reports whether job passes the filter's field criteria.
func (f Filter) Matches(job *ProcessDocumentJob) bool {
	switch {
	case f.UserID != "" && job.UserID != f.UserID:
		return false
	case f.DocumentID != "" && job.DocumentID != f.DocumentID:
		return false
	case f.Status != "" && job.Status != f.Status:
		return false
	}
	return true
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
