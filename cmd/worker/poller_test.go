package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/infra/memory"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, job *jobs.ProcessDocumentJob) error
	published   []*jobs.ProcessDocumentJob
}

func (m *mockPublisher) Publish(ctx context.Context, job *jobs.ProcessDocumentJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, job); err != nil {
			return err
		}
	}
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func seed(t *testing.T, repo *memory.Repository, id, user string, status domain.DocumentStatus) {
	t.Helper()
	require.NoError(t, repo.InsertDocument(context.Background(), &domain.Document{
		DocumentID: id,
		UserID:     user,
		Status:     status,
		UploadedAt: time.Now(),
	}))
}

func TestPoll_PublishesPendingOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	seed(t, repo, "d1", "alice", domain.DocumentStatusPending)
	seed(t, repo, "d2", "alice", domain.DocumentStatusCompleted)
	seed(t, repo, "d3", "bob", domain.DocumentStatusPending)
	seed(t, repo, "d4", "carol", domain.DocumentStatusPending)

	pub := &mockPublisher{}
	p := newPoller(repo, pub, []string{"alice", "bob"})

	assert.Equal(t, 2, p.poll(ctx))
	assert.Equal(t, 0, p.poll(ctx), "queued documents are not published twice")

	var ids []string
	for _, j := range pub.published {
		ids = append(ids, j.DocumentID)
	}
	assert.ElementsMatch(t, []string{"d1", "d3"}, ids)

	handler := p.track(func(context.Context, *jobs.ProcessDocumentJob) error { return nil })
	require.NoError(t, handler(ctx, pub.published[0]))
	assert.Equal(t, 1, p.poll(ctx), "released document is picked up while still pending")
}

func TestPoll_PublishFailureReleases(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	seed(t, repo, "d1", "alice", domain.DocumentStatusPending)

	pub := &mockPublisher{PublishFunc: func(context.Context, *jobs.ProcessDocumentJob) error {
		return errors.New("queue full")
	}}
	p := newPoller(repo, pub, []string{"alice"})
	assert.Equal(t, 0, p.poll(ctx))

	pub.PublishFunc = nil
	assert.Equal(t, 1, p.poll(ctx))
}

func TestWait(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	seed(t, repo, "d1", "alice", domain.DocumentStatusPending)

	pub := &mockPublisher{}
	p := newPoller(repo, pub, []string{"alice"})
	require.Equal(t, 1, p.poll(ctx))

	done := make(chan struct{})
	go func() {
		p.wait(ctx)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wait returned with a job in flight")
	case <-time.After(50 * time.Millisecond):
	}

	p.release("d1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after release")
	}

	cancelled, cancel := context.WithCancel(ctx)
	require.True(t, p.claim("d2"))
	cancel()
	p.wait(cancelled)
}

func TestSplitUsers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitUsers(" a, ,b "))
	assert.Nil(t, splitUsers(""))
}
