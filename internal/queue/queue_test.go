package queue

import (
	"context"
	"testing"
	"time"
)

type testParams struct {
	Name string
}

type testResult struct {
	Value int
}

func newTestQueue(t *testing.T) *Queue[testParams, testResult] {
	t.Helper()
	return New[testParams, testResult]("test", NewMemStore())
}

func TestEnqueueClaimResolve(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "alice"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	status, err := q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusPending {
		t.Fatalf("expected pending status, got %q", status)
	}

	descriptor, ok, err := q.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a job to be claimable")
	}
	if descriptor.JobID != jobID {
		t.Fatalf("expected claimed job %q, got %q", jobID, descriptor.JobID)
	}
	if descriptor.Params.Name != "alice" {
		t.Fatalf("expected params to round-trip, got %#v", descriptor.Params)
	}

	status, err = q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusRunning {
		t.Fatalf("expected running status after claim, got %q", status)
	}

	ok, err = q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 42})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected resolve to succeed for the claim-holding worker")
	}

	status, err = q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusSuccess {
		t.Fatalf("expected success status, got %q", status)
	}
}

func TestPriorityDominatesSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	lowID, err := q.Enqueue(ctx, testParams{Name: "low"}, PriorityLow, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	highID, err := q.Enqueue(ctx, testParams{Name: "high"}, PriorityHigh, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	descriptor, ok, err := q.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a claimable job")
	}
	if descriptor.JobID != highID {
		t.Fatalf("expected higher priority job %q to pop first, got %q", highID, descriptor.JobID)
	}

	descriptor, ok, err = q.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected second job to be claimable")
	}
	if descriptor.JobID != lowID {
		t.Fatalf("expected low priority job %q to pop second, got %q", lowID, descriptor.JobID)
	}
}

func TestDoubleResolveRejected(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "bob"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	ok, err := q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected first resolve to succeed")
	}

	ok, err = q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 2})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected second resolve of an already-resolved job to be rejected")
	}
}

func TestResolveRejectsNonOwningWorker(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "carol"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	ok, err := q.Resolve(ctx, jobID, "worker-2", StatusSuccess, testResult{Value: 1})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected resolve from a non-owning worker to be rejected")
	}
}

func TestExpiredJobIsDroppedSilentlyOnClaim(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	if _, err := q.Enqueue(ctx, testParams{Name: "expired"}, PriorityNormal, time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	goodID, err := q.Enqueue(ctx, testParams{Name: "fresh"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	descriptor, ok, err := q.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the fresh job to still be claimable")
	}
	if descriptor.JobID != goodID {
		t.Fatalf("expected expired job to be skipped, got %q", descriptor.JobID)
	}
}

func TestReclaimRequeuesStaleClaims(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "dave"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	daemon := NewReclaimDaemon(q, time.Millisecond, 0, nil)
	if err := daemon.sweep(ctx); err != nil {
		t.Fatal(err)
	}

	status, err := q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusPending {
		t.Fatalf("expected reclaimed job to be pending again, got %q", status)
	}

	descriptor, ok, err := q.Claim(ctx, "worker-2")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected reclaimed job to be claimable by a different worker")
	}
	if descriptor.JobID != jobID {
		t.Fatalf("expected reclaimed job %q, got %q", jobID, descriptor.JobID)
	}
}

func TestCancelRemovesUnclaimedJob(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "erin"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := q.Cancel(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cancel of a pending job to succeed")
	}

	status, err := q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNone {
		t.Fatalf("expected cancelled job to be unknown to the queue, got %q", status)
	}

	if _, ok, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("expected no job to be claimable after cancel")
	}
}

func TestWaitForJobObservesResolveRacingSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q := newTestQueue(t)

	jobID, err := q.Enqueue(ctx, testParams{Name: "frank"}, PriorityNormal, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Claim(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	resultCh := make(chan JobResult[testResult], 1)
	go func() {
		result, err := q.WaitForJob(ctx, jobID)
		if err != nil {
			done <- err
			return
		}
		resultCh <- result
		done <- nil
	}()

	time.Sleep(10 * time.Millisecond)
	if _, err := q.Resolve(ctx, jobID, "worker-1", StatusSuccess, testResult{Value: 7}); err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	result := <-resultCh
	if result.Status != StatusSuccess || result.Result.Value != 7 {
		t.Fatalf("unexpected result %#v", result)
	}
}
