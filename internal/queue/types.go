// Package queue implements the generic, persistent, priority work queue
// described in spec §4.1: claims with heartbeat-based reclaim, terminal
// result storage with pub/sub wake-up, and idempotent resolver callbacks.
// It generalizes gothub's internal/jobs.Queue — a single-table, DB-polling
// queue for one job type — into a type parameterized Queue[P, R] backed by
// a pluggable Store, matching spec §4.1's "any such store suffices".
package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobID is a globally unique, time-ordered identifier (spec §3). UUIDv7
// carries a 48-bit millisecond timestamp in its high bits, which is the
// "monotonic component" spec §3 recommends for cache locality and gives
// ties within the same millisecond a stable insertion order inside a
// sorted-set member comparison.
type JobID string

// NewJobID allocates a fresh, time-ordered JobID.
func NewJobID() JobID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the OS entropy source is broken; fall back
		// to a random v4 rather than panic the submitting caller.
		id = uuid.New()
	}
	return JobID(id.String())
}

// Priority is a small integer sort key. Lower numeric value pops first.
type Priority int

const (
	PriorityHigh   Priority = -10
	PriorityNormal Priority = -5
	PriorityLow    Priority = -1
)

// JobStatus is the lifecycle state of a job (spec §3).
type JobStatus string

const (
	StatusPending       JobStatus = "pending"
	StatusRunning       JobStatus = "running"
	StatusSuccess       JobStatus = "success"
	StatusFailure       JobStatus = "failure"
	StatusInternalError JobStatus = "internal_error"
	// StatusNone is returned by GetStatus when the job is unknown to the
	// queue (never existed, or was cancelled/resolved-and-cleaned-up).
	StatusNone JobStatus = ""
)

// IsResolved reports whether status is terminal (spec §3).
func IsResolved(status JobStatus) bool {
	switch status {
	case StatusSuccess, StatusFailure, StatusInternalError:
		return true
	default:
		return false
	}
}

// JobDescriptor is the persisted shape of a queued job: its params, its
// deadline, and enough bookkeeping for stale-result and trace-propagation
// decisions downstream (spec §3, §4.1, §6).
type JobDescriptor[P any] struct {
	JobID       JobID             `json:"job_id"`
	Params      P                 `json:"params"`
	Priority    Priority          `json:"priority"`
	Deadline    time.Time         `json:"deadline"`
	SubmittedAt time.Time         `json:"submitted_at"`
	// OTLPContext carries the submitting span's trace context (spec §6's
	// "otlp_context") so the worker's processing span is a child of the
	// span that enqueued the job.
	OTLPContext map[string]string `json:"otlp_context,omitempty"`
}

// Expired reports whether now is past the descriptor's deadline.
func (d *JobDescriptor[P]) Expired(now time.Time) bool {
	return now.After(d.Deadline)
}

// JobResult is the persisted shape of a job's terminal outcome (spec §3).
type JobResult[R any] struct {
	Status JobStatus `json:"status"`
	Result R         `json:"result"`
}

// Claim is the exclusive, heartbeat-refreshed right one worker holds over
// one job until resolution (spec §3).
type Claim struct {
	WorkerID string    `json:"worker_id"`
	JobID    JobID     `json:"job_id"`
	Priority Priority  `json:"priority"`
	Time     time.Time `json:"time"`
}

// QueueStats are the counters and gauges spec §3 names.
type QueueStats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Errored   int64 `json:"errored"`
	Scheduled int64 `json:"scheduled"`
	Claimed   int64 `json:"claimed"`
}
