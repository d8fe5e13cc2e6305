package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestProcessOrphanedJobResultsReplaysAndDeletes(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "gina"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if ok, err := q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 9}); err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}

	var mu sync.Mutex
	var seen []JobID
	resolver := ResolverFunc[testResult](func(ctx context.Context, jobID JobID, result JobResult[testResult]) error {
		mu.Lock()
		seen = append(seen, jobID)
		mu.Unlock()
		return nil
	})

	if err := ProcessOrphanedJobResults(ctx, q, resolver, time.Minute, nil); err != nil {
		t.Fatal(err)
	}

	if len(seen) != 1 || seen[0] != jobID {
		t.Fatalf("expected resolver to be called once for %q, got %#v", jobID, seen)
	}

	ids, err := q.store.AllResultJobIDs(ctx, q.name)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected orphaned result to be deleted after replay, still have %#v", ids)
	}
}

func TestProcessOrphanedJobResultsSkipsWhenLeaseHeld(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "hank"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if ok, err := q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 1}); err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}

	acquired, err := q.store.TryAcquireLease(ctx, "wq:test:orphan-lease", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("expected to acquire the lease")
	}

	called := false
	resolver := ResolverFunc[testResult](func(ctx context.Context, jobID JobID, result JobResult[testResult]) error {
		called = true
		return nil
	})

	if err := ProcessOrphanedJobResults(ctx, q, resolver, time.Minute, nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("expected resolver not to run while another replica holds the lease")
	}
}
