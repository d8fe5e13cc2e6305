package worker

import (
	"context"
	"time"

	"github.com/odvcencio/roomhub/internal/queue"
)

// ProcessOrphans replays any terminal result still sitting in either
// queue's result store through its resolver, covering the case where a
// resolver crashed after a job resolved but before it durably recorded
// the outcome (spec.md §5's at-least-once guarantee, §7's "invoked once
// at boot").
func (rt *Runtime) ProcessOrphans(ctx context.Context, leaseTTL time.Duration) error {
	if err := queue.ProcessOrphanedJobResults(ctx, rt.ValidationQueue, rt.ValidationResolver, leaseTTL, rt.Log); err != nil {
		return err
	}
	return queue.ProcessOrphanedJobResults(ctx, rt.GenerationQueue, rt.GenerationResolver, leaseTTL, rt.Log)
}
