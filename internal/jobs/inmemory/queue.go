// Package inmemory is a channel-backed job queue and map-backed job store
// for single-instance deployments and tests.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/google/uuid"
)

// ErrQueueClosed is returned after Stop or Close.
var ErrQueueClosed = errors.New("queue is closed")

// Options configure a Queue.
type Options struct {
	BufferSize int // jobs buffered before Publish blocks; default 100
	Workers    int // concurrent handlers; default 5
	// Backoff returns the delay before retry n (1-based); default n seconds.
	Backoff func(retry int) time.Duration
}

// Queue distributes jobs to a fixed pool of workers over a channel and
// retries failed jobs with a linear backoff.
type Queue struct {
	jobChan   chan *jobs.ProcessDocumentJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	retries   sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.Store
	workers   int
	backoff   func(int) time.Duration
	closed    bool
}

// NewQueue creates a queue. store may be nil.
func NewQueue(opts Options, store jobs.Store) *Queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Backoff == nil {
		opts.Backoff = func(retry int) time.Duration { return time.Duration(retry) * time.Second }
	}
	return &Queue{
		jobChan:   make(chan *jobs.ProcessDocumentJob, opts.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   opts.Workers,
		backoff:   opts.Backoff,
	}
}

// Publish fills in defaults, saves the job and enqueues it.
func (q *Queue) Publish(ctx context.Context, job *jobs.ProcessDocumentJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("Publish: save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	for range q.workers {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("workers", q.workers).Msg("job queue started")
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.ProcessDocumentJob, handler jobs.Handler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("document_id", job.DocumentID).
		Int("attempt", job.RetryCount+1).
		Logger()
	ctx = logger.WithContext(ctx, log)

	now := time.Now().UTC()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	job.CompletedAt = nil
	q.save(ctx, job)

	err := q.run(ctx, job, handler)

	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Msg("job completed")
	case !jobs.IsPermanent(err) && job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		delay := q.backoff(job.RetryCount)
		log.Warn().Err(err).Dur("backoff", delay).Msg("job failed, retrying")
		// Saved before rescheduling so the retry's own updates land last.
		q.save(ctx, job)
		q.scheduleRetry(ctx, job.Clone(), delay)
		return
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Msg("job failed")
	}
	q.save(ctx, job)
}

// run calls the handler, converting a panic into a permanent failure.
func (q *Queue) run(ctx context.Context, job *jobs.ProcessDocumentJob, handler jobs.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobs.Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.ProcessDocumentJob, delay time.Duration) {
	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-q.closeChan:
			return
		case <-ctx.Done():
			return
		}
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		if err := q.Publish(ctx, job); err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Str("job_id", job.JobID).Msg("failed to re-enqueue job")
		}
	}()
}

func (q *Queue) save(ctx context.Context, job *jobs.ProcessDocumentJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("failed to save job state")
	}
}

// Stop closes the queue and waits for in-flight jobs and pending retries.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		q.retries.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
