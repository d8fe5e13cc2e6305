package validation

import (
	"context"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/queue"
)

// Resolver implements the idempotent validation resolver callback spec.md
// §4.3 describes. The worker runtime invokes it for every resolved
// validation job; a synchronous submission's job carries no YAMLID, so
// Resolve returns without touching any row and SubmitInteractive records
// that result itself via WaitForJob.
type Resolver struct {
	Store YAMLStore
}

// NewResolver constructs a Resolver backed by store.
func NewResolver(store YAMLStore) *Resolver {
	return &Resolver{Store: store}
}

// Resolve implements queue.Resolver[Result].
func (r *Resolver) Resolve(ctx context.Context, jobID queue.JobID, result queue.JobResult[Result]) error {
	if result.Result.YAMLID == nil {
		// No row to update — treat as processed (spec.md §4.3 step 1).
		return nil
	}
	yamlID := *result.Result.YAMLID

	y, err := r.Store.GetYAML(ctx, yamlID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil
		}
		return err
	}

	if y.LastValidationTime.After(result.Result.SubmittedAt) {
		return nil // a later job already superseded this result
	}

	status, lastErr := statusAndErrorFor(result)
	var resolvedApworlds []models.NameVersion
	if status.IsResolved() {
		resolvedApworlds = result.Result.ResolvedApworlds
	}

	return r.Store.UpdateYAMLValidation(ctx, yamlID, status, resolvedApworlds, lastErr, time.Now())
}

func statusAndErrorFor(result queue.JobResult[Result]) (models.ValidationStatus, string) {
	switch result.Status {
	case queue.StatusSuccess:
		return models.StatusValidated, ""
	default:
		return models.StatusFailed, result.Result.Error
	}
}
