// Package generation implements the generation pipeline spec.md §4.4:
// pre-flight checks, manifest freezing, the deterministic slot ordering
// shared with the external generator worker, patch-file correlation, and
// log tailing.
package generation

import "github.com/odvcencio/roomhub/internal/models"

// Params is the generation job payload spec.md §4.4 names:
// `{room_id, apworlds, meta_file, otlp_context}`. OTLPContext travels on
// the queue.JobDescriptor itself (spec.md §6), not in Params.
type Params struct {
	RoomID   int64                `json:"room_id"`
	Apworlds []models.NameVersion `json:"apworlds"`
	MetaFile string               `json:"meta_file"`
}

// Result is the generation job's terminal payload.
type Result struct {
	Error string `json:"error,omitempty"`
}
