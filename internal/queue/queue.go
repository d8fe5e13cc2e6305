package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
)

// Queue is the generic, persistent priority work queue spec §4.1 names:
// callers enqueue a JobDescriptor[P], workers claim and heartbeat it, and
// exactly one of {still queued, claimed, resolved, deleted} holds at any
// time for a given JobID (spec §8). P is the job's parameter type and R
// its result type — validation.Params/validation.Result and
// generation.Params/generation.Result instantiate the same Queue.
type Queue[P any, R any] struct {
	name     string
	store    Store
	claimTTL time.Duration
	now      func() time.Time
}

// Option configures a Queue at construction time.
type Option[P any, R any] func(*Queue[P, R])

// WithClaimTTL overrides the queue's claim TTL (default 30s). No Queue
// method reads it; ReclaimDaemon takes its own staleness threshold as a
// constructor argument.
func WithClaimTTL[P any, R any](ttl time.Duration) Option[P, R] {
	return func(q *Queue[P, R]) { q.claimTTL = ttl }
}

// withClock overrides the queue's notion of "now", for deterministic tests.
func withClock[P any, R any](now func() time.Time) Option[P, R] {
	return func(q *Queue[P, R]) { q.now = now }
}

// New constructs a Queue named name over store. name partitions the
// underlying Store's keyspace (spec §6) — two Queue values sharing a
// Store but given different names never see each other's jobs.
func New[P any, R any](name string, store Store, opts ...Option[P, R]) *Queue[P, R] {
	q := &Queue[P, R]{
		name:     name,
		store:    store,
		claimTTL: 30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue submits a new job at the given priority with the given
// deadline and returns its JobID (spec §4.1 "enqueue").
func (q *Queue[P, R]) Enqueue(ctx context.Context, params P, priority Priority, deadline time.Time) (JobID, error) {
	jobID := NewJobID()
	descriptor := JobDescriptor[P]{
		JobID:       jobID,
		Params:      params,
		Priority:    priority,
		Deadline:    deadline,
		SubmittedAt: q.now(),
		OTLPContext: otlpContextFrom(ctx),
	}
	payload, err := json.Marshal(descriptor)
	if err != nil {
		return "", apperror.WrapInternal(err, "marshal job descriptor")
	}
	if err := q.store.Enqueue(ctx, q.name, jobID, payload, float64(priority)); err != nil {
		return "", apperror.WrapInternal(err, "enqueue job")
	}
	return jobID, nil
}

// Claim pops the highest-priority pending job, if any, records a claim
// for workerID, and returns its descriptor. ok is false if the queue was
// empty or every popped job had already expired (spec §4.1, §6's
// deadline-shorter-than-queue-wait decision in SPEC_FULL.md §11: an
// expired job is silently dropped rather than surfaced as an error).
func (q *Queue[P, R]) Claim(ctx context.Context, workerID string) (JobDescriptor[P], bool, error) {
	for {
		jobID, ok, err := q.store.PopMin(ctx, q.name)
		if err != nil {
			return JobDescriptor[P]{}, false, apperror.WrapInternal(err, "pop job")
		}
		if !ok {
			return JobDescriptor[P]{}, false, nil
		}

		raw, ok, err := q.store.GetDescriptor(ctx, q.name, jobID)
		if err != nil {
			return JobDescriptor[P]{}, false, apperror.WrapInternal(err, "get job descriptor")
		}
		if !ok {
			// Cancelled between enqueue and claim; move on to the next job.
			continue
		}

		var descriptor JobDescriptor[P]
		if err := json.Unmarshal(raw, &descriptor); err != nil {
			return JobDescriptor[P]{}, false, apperror.WrapInternal(err, "unmarshal job descriptor")
		}

		if descriptor.Expired(q.now()) {
			_ = q.store.DeleteDescriptor(ctx, q.name, jobID)
			continue
		}

		claim := Claim{WorkerID: workerID, JobID: jobID, Priority: descriptor.Priority, Time: q.now()}
		claimPayload, err := json.Marshal(claim)
		if err != nil {
			return JobDescriptor[P]{}, false, apperror.WrapInternal(err, "marshal claim")
		}
		if err := q.store.SetClaim(ctx, q.name, jobID, claimPayload); err != nil {
			return JobDescriptor[P]{}, false, apperror.WrapInternal(err, "set claim")
		}
		return descriptor, true, nil
	}
}

// Heartbeat refreshes workerID's claim on jobID, proving it is still
// alive to the reclaim daemon. ok is false if the claim no longer exists
// or belongs to a different worker (it was already reclaimed).
func (q *Queue[P, R]) Heartbeat(ctx context.Context, jobID JobID, workerID string) (bool, error) {
	claim := Claim{WorkerID: workerID, JobID: jobID, Time: q.now()}
	payload, err := json.Marshal(claim)
	if err != nil {
		return false, apperror.WrapInternal(err, "marshal claim")
	}
	ok, err := q.store.CompareAndUpdateClaim(ctx, q.name, jobID, workerID, payload)
	if err != nil {
		return false, apperror.WrapInternal(err, "heartbeat claim")
	}
	return ok, nil
}

// Resolve records a job's terminal outcome under workerID's claim. It is
// idempotent by construction (spec §7): a second Resolve call for the
// same jobID finds no matching claim (the first call deleted it) and
// returns ok=false rather than overwriting the stored result.
func (q *Queue[P, R]) Resolve(ctx context.Context, jobID JobID, workerID string, status JobStatus, result R) (bool, error) {
	if !IsResolved(status) {
		return false, apperror.InvalidInput("resolve status %q is not terminal", status)
	}
	payload, err := json.Marshal(JobResult[R]{Status: status, Result: result})
	if err != nil {
		return false, apperror.WrapInternal(err, "marshal job result")
	}
	ok, err := q.store.Resolve(ctx, q.name, jobID, workerID, payload, statNameFor(status))
	if err != nil {
		return false, apperror.WrapInternal(err, "resolve job")
	}
	return ok, nil
}

// GetStatus reports a job's current status without consuming its result
// (spec §4.1 "get_status"). It returns StatusNone for a job the queue has
// no record of at all.
func (q *Queue[P, R]) GetStatus(ctx context.Context, jobID JobID) (JobStatus, error) {
	if raw, ok, err := q.store.GetResult(ctx, q.name, jobID); err != nil {
		return StatusNone, apperror.WrapInternal(err, "get job result")
	} else if ok {
		var result JobResult[R]
		if err := json.Unmarshal(raw, &result); err != nil {
			return StatusNone, apperror.WrapInternal(err, "unmarshal job result")
		}
		return result.Status, nil
	}

	if _, ok, err := q.store.GetClaim(ctx, q.name, jobID); err != nil {
		return StatusNone, apperror.WrapInternal(err, "get claim")
	} else if ok {
		return StatusRunning, nil
	}

	if _, ok, err := q.store.GetDescriptor(ctx, q.name, jobID); err != nil {
		return StatusNone, apperror.WrapInternal(err, "get descriptor")
	} else if ok {
		return StatusPending, nil
	}

	return StatusNone, nil
}

// WaitForJob blocks until jobID resolves or ctx is cancelled, returning
// its terminal result (spec §4.1 "wait_for_job"). It subscribes before
// checking current status so a resolve racing the subscribe is never
// missed (spec §9).
func (q *Queue[P, R]) WaitForJob(ctx context.Context, jobID JobID) (JobResult[R], error) {
	sub, err := q.store.Subscribe(ctx, "wq:"+q.name+":wake")
	if err != nil {
		return JobResult[R]{}, apperror.WrapInternal(err, "subscribe")
	}
	defer sub.Close()

	if result, ok, err := q.peekResult(ctx, jobID); err != nil {
		return JobResult[R]{}, err
	} else if ok {
		return result, nil
	}

	for {
		select {
		case <-ctx.Done():
			return JobResult[R]{}, apperror.Timeout("wait_for_job cancelled: %v", ctx.Err())
		case _, ok := <-sub.C():
			if !ok {
				return JobResult[R]{}, apperror.Internal("wake subscription closed")
			}
			if result, ok, err := q.peekResult(ctx, jobID); err != nil {
				return JobResult[R]{}, err
			} else if ok {
				return result, nil
			}
		}
	}
}

func (q *Queue[P, R]) peekResult(ctx context.Context, jobID JobID) (JobResult[R], bool, error) {
	raw, ok, err := q.store.GetResult(ctx, q.name, jobID)
	if err != nil {
		return JobResult[R]{}, false, apperror.WrapInternal(err, "get job result")
	}
	if !ok {
		return JobResult[R]{}, false, nil
	}
	var result JobResult[R]
	if err := json.Unmarshal(raw, &result); err != nil {
		return JobResult[R]{}, false, apperror.WrapInternal(err, "unmarshal job result")
	}
	return result, true, nil
}

// Cancel removes jobID from the queue and deletes its descriptor and any
// claim on it, so a worker already running the job finds its claim gone
// on its next Heartbeat or Resolve (spec §4.1). ok is false if the job
// has no descriptor: already resolved, already cancelled, or never
// existed.
func (q *Queue[P, R]) Cancel(ctx context.Context, jobID JobID) (bool, error) {
	_, ok, err := q.store.GetDescriptor(ctx, q.name, jobID)
	if err != nil {
		return false, apperror.WrapInternal(err, "get descriptor")
	}
	if !ok {
		return false, nil
	}
	if err := q.store.RemoveFromQueue(ctx, q.name, jobID); err != nil {
		return false, apperror.WrapInternal(err, "remove from queue")
	}
	if err := q.store.DeleteDescriptor(ctx, q.name, jobID); err != nil {
		return false, apperror.WrapInternal(err, "delete descriptor")
	}
	if err := q.store.DeleteClaim(ctx, q.name, jobID); err != nil {
		return false, apperror.WrapInternal(err, "delete claim")
	}
	return true, nil
}

// Stats reports the queue's counters (spec §3 QueueStats).
func (q *Queue[P, R]) Stats(ctx context.Context) (QueueStats, error) {
	stats, err := q.store.Stats(ctx, q.name)
	if err != nil {
		return QueueStats{}, apperror.WrapInternal(err, "get stats")
	}
	return stats, nil
}

func statNameFor(status JobStatus) string {
	switch status {
	case StatusSuccess:
		return "succeeded"
	case StatusFailure:
		return "failed"
	case StatusInternalError:
		return "errored"
	default:
		return ""
	}
}
