package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/core/ports"
)

type recordingAuditRepo struct {
	mu     sync.Mutex
	events []ports.ProvisioningEvent
}

func (r *recordingAuditRepo) InsertEvent(_ context.Context, event *ports.ProvisioningEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *recordingAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func waitForEvents(t *testing.T, repo *recordingAuditRepo, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if repo.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("only %d of %d events persisted before deadline", repo.count(), want)
}

func TestDispatcher_PersistsEnqueuedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &recordingAuditRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		d.Enqueue(ports.ProvisioningEvent{
			AttemptKey: "attempt-" + string(rune('a'+i)),
			IdentityID: "id_1",
			Outcome:    "success",
		})
	}

	waitForEvents(t, repo, 10)
}

func TestDispatcher_SameKeyGoesToSameWorker(t *testing.T) {
	d := NewDispatcher(4, &recordingAuditRepo{}, zerolog.Nop())

	first := d.shardIndex("attempt-1id_1")
	for i := 0; i < 20; i++ {
		if got := d.shardIndex("attempt-1id_1"); got != first {
			t.Fatalf("shard index changed between calls: %d then %d", first, got)
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewDispatcher(0, &recordingAuditRepo{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("worker count = %d, want %d", len(d.workers), defaultWorkers)
	}
}

func TestDispatcher_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	repo := &recordingAuditRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(ctx)

	d.Enqueue(ports.ProvisioningEvent{AttemptKey: "k", IdentityID: "id_1"})
	waitForEvents(t, repo, 1)

	cancel()
	// Give the worker a moment to observe cancellation, then verify
	// late events are no longer drained.
	time.Sleep(20 * time.Millisecond)
	d.Enqueue(ports.ProvisioningEvent{AttemptKey: "k", IdentityID: "id_2"})
	time.Sleep(50 * time.Millisecond)

	if repo.count() != 1 {
		t.Fatalf("expected 1 persisted event after cancel, got %d", repo.count())
	}
}
