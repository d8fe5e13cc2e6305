package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// ReclaimDaemon periodically scans a queue's held claims and requeues any
// whose heartbeat has gone stale, on the assumption the worker holding
// them died (spec §4.1). It generalizes gothub's internal/jobs reclaim
// loop, which did the equivalent scan with a SQL "claimed_at < now() -
// interval" query instead of a Store-level AllClaims call.
type ReclaimDaemon[P any, R any] struct {
	queue    *Queue[P, R]
	interval time.Duration
	staleTTL time.Duration
	log      *slog.Logger
}

// NewReclaimDaemon constructs a daemon that, every interval, requeues any
// claim on q older than staleTTL.
func NewReclaimDaemon[P any, R any](q *Queue[P, R], interval, staleTTL time.Duration, log *slog.Logger) *ReclaimDaemon[P, R] {
	if log == nil {
		log = slog.Default()
	}
	return &ReclaimDaemon[P, R]{queue: q, interval: interval, staleTTL: staleTTL, log: log}
}

// Run blocks, sweeping stale claims every interval, until ctx is
// cancelled.
func (d *ReclaimDaemon[P, R]) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.sweep(ctx); err != nil {
				d.log.ErrorContext(ctx, "reclaim sweep failed", "queue", d.queue.name, "error", err)
			}
		}
	}
}

func (d *ReclaimDaemon[P, R]) sweep(ctx context.Context) error {
	claims, err := d.queue.store.AllClaims(ctx, d.queue.name)
	if err != nil {
		return err
	}
	now := d.queue.now()
	for jobID, raw := range claims {
		var claim Claim
		if err := json.Unmarshal(raw, &claim); err != nil {
			d.log.WarnContext(ctx, "skipping unparseable claim", "job_id", jobID, "error", err)
			continue
		}
		if now.Sub(claim.Time) < d.staleTTL {
			continue
		}

		descRaw, ok, err := d.queue.store.GetDescriptor(ctx, d.queue.name, jobID)
		if err != nil {
			return err
		}
		if !ok {
			// Descriptor is gone — the job must have resolved between the
			// AllClaims read and now. Drop the stale claim and move on.
			_ = d.queue.store.DeleteClaim(ctx, d.queue.name, jobID)
			continue
		}
		var descriptor JobDescriptor[P]
		if err := json.Unmarshal(descRaw, &descriptor); err != nil {
			d.log.WarnContext(ctx, "skipping unparseable descriptor", "job_id", jobID, "error", err)
			continue
		}

		if descriptor.Expired(now) {
			_ = d.queue.store.DeleteClaim(ctx, d.queue.name, jobID)
			_ = d.queue.store.DeleteDescriptor(ctx, d.queue.name, jobID)
			continue
		}

		if err := d.queue.store.DeleteClaim(ctx, d.queue.name, jobID); err != nil {
			return err
		}
		if err := d.queue.store.Requeue(ctx, d.queue.name, jobID, float64(descriptor.Priority)); err != nil {
			return err
		}
		d.log.InfoContext(ctx, "reclaimed stale job", "queue", d.queue.name, "job_id", jobID, "worker_id", claim.WorkerID)
	}
	return nil
}
