package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Resolver is the idempotent callback spec §7 describes: durably apply a
// job's terminal result (write database rows, trigger downstream work)
// and only then let the queue forget the result. Implementations must
// tolerate being invoked twice for the same JobID with the same result —
// ProcessOrphanedJobResults and a worker's normal completion path both
// call the same Resolver.
type Resolver[R any] interface {
	Resolve(ctx context.Context, jobID JobID, result JobResult[R]) error
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc[R any] func(ctx context.Context, jobID JobID, result JobResult[R]) error

func (f ResolverFunc[R]) Resolve(ctx context.Context, jobID JobID, result JobResult[R]) error {
	return f(ctx, jobID, result)
}

// ProcessOrphanedJobResults replays every result still sitting in the
// queue's result store through resolver, then deletes it (spec §7). This
// covers the boot-time case where a resolver crashed after a job
// resolved but before it durably recorded the outcome: the result
// survives in the Store and gets replayed on the next startup.
//
// orphanLeaseTTL bounds how long this instance holds the cross-replica
// lease spec §11's Open Question decision names — only one replica
// processes orphans for a given queue at a time, so the resolver's
// idempotence only has to cover crash-and-restart, not concurrent
// replicas racing the same JobID.
func ProcessOrphanedJobResults[P any, R any](ctx context.Context, q *Queue[P, R], resolver Resolver[R], orphanLeaseTTL time.Duration, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	leaseKey := "wq:" + q.name + ":orphan-lease"
	acquired, err := q.store.TryAcquireLease(ctx, leaseKey, orphanLeaseTTL)
	if err != nil {
		return err
	}
	if !acquired {
		log.InfoContext(ctx, "orphan replay lease held elsewhere, skipping", "queue", q.name)
		return nil
	}

	ids, err := q.store.AllResultJobIDs(ctx, q.name)
	if err != nil {
		return err
	}
	for _, jobID := range ids {
		raw, ok, err := q.store.GetResult(ctx, q.name, jobID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var result JobResult[R]
		if err := json.Unmarshal(raw, &result); err != nil {
			log.WarnContext(ctx, "skipping unparseable orphaned result", "job_id", jobID, "error", err)
			continue
		}
		if err := resolver.Resolve(ctx, jobID, result); err != nil {
			log.ErrorContext(ctx, "orphaned result replay failed, will retry next boot", "job_id", jobID, "error", err)
			continue
		}
		if err := q.store.DeleteResult(ctx, q.name, jobID); err != nil {
			return err
		}
		log.InfoContext(ctx, "replayed orphaned job result", "queue", q.name, "job_id", jobID)
	}
	return nil
}
