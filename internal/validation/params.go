package validation

import (
	"time"

	"github.com/odvcencio/roomhub/internal/models"
)

// Params is the validation job payload spec.md §4.3 names:
// `{apworlds: resolved list, yaml: raw text, yaml_id: Some(id) | None}`.
// YAMLID is the nil pointer for a synchronous, interactive-upload
// submission and a set pointer for an asynchronous revalidation.
type Params struct {
	Apworlds []models.NameVersion `json:"apworlds"`
	YAML     string               `json:"yaml"`
	YAMLID   *int64               `json:"yaml_id,omitempty"`
}

// Result is the validation job's terminal payload, matching the
// `{error: ...}` shape spec.md §8's happy-path scenario names.
type Result struct {
	ResolvedApworlds []models.NameVersion `json:"resolved_apworlds,omitempty"`
	Error            string               `json:"error,omitempty"`
	// SubmittedAt and YAMLID carry the job descriptor's submission time
	// and yaml_id forward into the result, since by the time the resolver
	// callback runs the descriptor itself has already been deleted (spec
	// §4.1). SubmittedAt lets the resolver implement the "a later job
	// supersedes this result" drop rule from spec.md §4.3; YAMLID is nil
	// for a synchronous submission's job, for which the resolver returns
	// without touching any row (SubmitInteractive records that result
	// itself).
	SubmittedAt time.Time `json:"submitted_at"`
	YAMLID      *int64    `json:"yaml_id,omitempty"`
}
