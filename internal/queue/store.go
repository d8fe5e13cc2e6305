package queue

import (
	"context"
	"time"
)

// Subscription is a live pub/sub subscription to a single channel. Callers
// must Close it once done to release the underlying connection.
type Subscription interface {
	// C delivers published payloads. It is closed when the subscription is
	// closed or the underlying connection is torn down.
	C() <-chan string
	Close() error
}

// Store is the persistence substrate spec §4.1 describes as "a key-value
// store with ordered sets, hashes, expiring strings, and a pub/sub
// channel (any such store suffices)". Every method below corresponds to
// one atomic batch named in spec §4.1 — RedisStore implements that
// atomicity with Lua scripts (EVAL is itself atomic against Redis), and
// MemStore implements it with one mutex guarding all queue, claim,
// result, stats and lease state (pub/sub subscribers sit behind a second
// mutex), so both backends satisfy the same "no task observes a partial
// mutation" requirement from spec §5.
//
// RedisStore namespaces its keys per queue as:
//
//	wq:{queue}:queue               ordered set, score=priority, member=JobID
//	wq:{queue}:job:{JobID}         job descriptor
//	wq:{queue}:claims              hash, field=JobID, value=Claim
//	wq:{queue}:result:{JobID}      terminal JobResult
//	wq:{queue}:stats               hash holding the QueueStats counters
//
// Both backends publish their wake-ups on the single channel
// wq:{queue}:wake; there is no per-job result channel. Store
// implementations build these names themselves from the queue name
// passed to each method; callers never see a raw key.
type Store interface {
	// Enqueue writes the job descriptor, adds it to the priority queue,
	// and publishes a wake-up on the queue channel, as one atomic batch.
	Enqueue(ctx context.Context, queueName string, jobID JobID, descriptor []byte, priority float64) error

	// PopMin atomically removes and returns the lowest-score queue member.
	// ok is false if the queue was empty.
	PopMin(ctx context.Context, queueName string) (jobID JobID, ok bool, err error)

	// GetDescriptor reads a job descriptor. ok is false if it does not
	// exist (already claimed-and-deleted, cancelled, or never enqueued).
	GetDescriptor(ctx context.Context, queueName string, jobID JobID) (descriptor []byte, ok bool, err error)

	// DeleteDescriptor removes a job descriptor (used by Cancel and by the
	// claim path when a deadline has already elapsed).
	DeleteDescriptor(ctx context.Context, queueName string, jobID JobID) error

	// Requeue re-adds jobID to the priority queue at the given score
	// without touching its descriptor, and publishes a wake-up. Used by
	// the reclaim daemon.
	Requeue(ctx context.Context, queueName string, jobID JobID, priority float64) error

	// RemoveFromQueue removes jobID from the priority queue's ordered set
	// without affecting its descriptor (used by Cancel before the
	// descriptor delete).
	RemoveFromQueue(ctx context.Context, queueName string, jobID JobID) error

	// SetClaim atomically records a claim. Used on successful pop.
	SetClaim(ctx context.Context, queueName string, jobID JobID, claim []byte) error

	// GetClaim reads a claim. ok is false if no claim is held.
	GetClaim(ctx context.Context, queueName string, jobID JobID) (claim []byte, ok bool, err error)

	// CompareAndUpdateClaim atomically updates the stored claim to
	// newClaim iff a claim currently exists for jobID and its worker_id
	// equals expectedWorkerID (used by Queue.Heartbeat). ok is false
	// if the claim is missing or owned by someone else.
	CompareAndUpdateClaim(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, newClaim []byte) (ok bool, err error)

	// DeleteClaim removes a claim unconditionally.
	DeleteClaim(ctx context.Context, queueName string, jobID JobID) error

	// AllClaims returns every held claim for the queue, keyed by JobID.
	AllClaims(ctx context.Context, queueName string) (map[JobID][]byte, error)

	// Resolve atomically: verifies the claim is held by expectedWorkerID,
	// deletes the job descriptor, deletes the claim, writes the result,
	// and increments statName. ok is false (no error) if the claim was
	// missing or owned by someone else — this is how a non-owning or
	// duplicate resolve is rejected per spec §4.1/§8.
	Resolve(ctx context.Context, queueName string, jobID JobID, expectedWorkerID string, result []byte, statName string) (ok bool, err error)

	// GetResult reads a stored terminal result. ok is false if none
	// exists yet.
	GetResult(ctx context.Context, queueName string, jobID JobID) (result []byte, ok bool, err error)

	// DeleteResult removes a stored result once a resolver callback has
	// durably processed it.
	DeleteResult(ctx context.Context, queueName string, jobID JobID) error

	// AllResultJobIDs lists every job_id with a stored but not yet
	// deleted result, for ProcessOrphanedJobResults.
	AllResultJobIDs(ctx context.Context, queueName string) ([]JobID, error)

	// Stats reads the queue's counters and gauges.
	Stats(ctx context.Context, queueName string) (QueueStats, error)

	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload string) error

	// Subscribe opens a subscription to channel. The subscription must
	// observe every message published after Subscribe returns (spec §9's
	// subscribe-then-check race).
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// TryAcquireLease attempts to take an exclusive, TTL-bounded lease on
	// key. Used to serialize ProcessOrphanedJobResults across replicas
	// (spec §9 Open Question, decided in SPEC_FULL.md §11).
	TryAcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
