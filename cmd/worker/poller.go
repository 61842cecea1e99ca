package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

type documentLister interface {
	ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error)
}

// poller publishes a job for every pending document it has not already queued.
type poller struct {
	docs      documentLister
	publisher jobs.Publisher
	users     []string

	mu       sync.Mutex
	inFlight map[string]struct{}
	idle     *sync.Cond
}

func newPoller(docs documentLister, publisher jobs.Publisher, users []string) *poller {
	p := &poller{
		docs:      docs,
		publisher: publisher,
		users:     users,
		inFlight:  make(map[string]struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// track releases a document once an attempt finishes. By then its status is
// no longer pending, so the next poll will not pick it up again.
func (p *poller) track(next jobs.Handler) jobs.Handler {
	return func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		defer p.release(job.DocumentID)
		return next(ctx, job)
	}
}

func (p *poller) release(documentID string) {
	p.mu.Lock()
	delete(p.inFlight, documentID)
	if len(p.inFlight) == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// poll returns the number of jobs published.
func (p *poller) poll(ctx context.Context) int {
	log := logger.FromContext(ctx)
	published := 0
	for _, user := range p.users {
		docs, err := p.docs.ListDocuments(ctx, user)
		if err != nil {
			log.Error().Err(err).Str("user_id", user).Msg("failed to list documents")
			continue
		}
		for _, doc := range docs {
			if doc.Status != domain.DocumentStatusPending || !p.claim(doc.DocumentID) {
				continue
			}
			job := &jobs.ProcessDocumentJob{UserID: user, DocumentID: doc.DocumentID}
			if err := p.publisher.Publish(ctx, job); err != nil {
				p.release(doc.DocumentID)
				log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("failed to publish job")
				continue
			}
			published++
		}
	}
	if published > 0 {
		log.Info().Int("jobs", published).Msg("queued pending documents")
	}
	return published
}

func (p *poller) claim(documentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inFlight[documentID]; ok {
		return false
	}
	p.inFlight[documentID] = struct{}{}
	return true
}

// wait blocks until nothing is in flight or ctx is done.
func (p *poller) wait(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.idle.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.inFlight) > 0 && ctx.Err() == nil {
		p.idle.Wait()
	}
}

// run polls every interval until quit fires or ctx is done.
func (p *poller) run(ctx context.Context, interval time.Duration, quit <-chan os.Signal) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-quit:
			return
		case <-ctx.Done():
			return
		}
	}
}
