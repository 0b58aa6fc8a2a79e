package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"saasgate/backend/internal/activity/domain"
)

type recordingPublisher struct {
	mu       sync.Mutex
	ids      []string
	err      error
	closed   bool
	closeErr error
}

func (r *recordingPublisher) Publish(_ context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, e.ID)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.closeErr
}

func TestMulti_Collapses(t *testing.T) {
	if p := Multi(); p != nil {
		t.Errorf("Multi() = %v, want nil", p)
	}
	if p := Multi(nil, nil); p != nil {
		t.Errorf("Multi(nil, nil) = %v, want nil", p)
	}
	only := &recordingPublisher{}
	if p := Multi(nil, only); p != Publisher(only) {
		t.Errorf("single sink should be returned as is, got %T", p)
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	errA := errors.New("broker down")
	a := &recordingPublisher{err: errA}
	b := &recordingPublisher{}
	p := Multi(a, nil, b)

	err := p.Publish(context.Background(), &domain.Entry{ID: "e1"})
	if !errors.Is(err, errA) {
		t.Fatalf("Publish error = %v, want %v", err, errA)
	}
	if len(a.ids) != 1 || len(b.ids) != 1 {
		t.Errorf("every sink should receive the entry: a=%v b=%v", a.ids, b.ids)
	}

	errB := errors.New("close failed")
	b.closeErr = errB
	if err := p.Close(); !errors.Is(err, errB) {
		t.Errorf("Close error = %v, want %v", err, errB)
	}
	if !a.closed || !b.closed {
		t.Error("every sink should be closed")
	}
}
