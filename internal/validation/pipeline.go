package validation

import (
	"context"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/queue"
)

// YAMLStore is the persistence seam the pipeline needs: create a pending
// row, and later let the resolver callback update it.
type YAMLStore interface {
	CreateYAML(ctx context.Context, y *models.YAML) error
	GetYAML(ctx context.Context, id int64) (*models.YAML, error)
	UpdateYAMLValidation(ctx context.Context, id int64, status models.ValidationStatus, resolvedApworlds []models.NameVersion, lastError string, lastValidationTime time.Time) error
}

// Pipeline wires YAML parsing, game resolution, quota enforcement, and
// queue submission into the one entry point spec.md §4.3 describes.
type Pipeline struct {
	Queue       *queue.Queue[Params, Result]
	Store       YAMLStore
	Counter     ExistingYAMLCounter
	Authorizer  Authorizer
	SyncTimeout time.Duration
}

// NewPipeline constructs a Pipeline with spec.md §4.3's 30s synchronous
// wait budget.
func NewPipeline(q *queue.Queue[Params, Result], store YAMLStore, counter ExistingYAMLCounter, authz Authorizer) *Pipeline {
	return &Pipeline{Queue: q, Store: store, Counter: counter, Authorizer: authz, SyncTimeout: 30 * time.Second}
}

// SubmitInteractive handles an interactive upload (spec.md §4.3's
// synchronous mode, `yaml_id = None`): parse, resolve, enforce quota,
// persist a pending row, enqueue, and wait up to SyncTimeout for the
// terminal result before honoring the room's allow_invalid_yamls policy.
func (p *Pipeline) SubmitInteractive(ctx context.Context, room *models.Room, submitterID int64, bundleID, rawYAML string, resolved models.ResolvedSet) (*models.YAML, error) {
	docs, err := ParseDocuments(rawYAML)
	if err != nil {
		return nil, err
	}

	counters := NewNameCounters()
	for i, doc := range docs {
		substituted, err := counters.SubstituteAndValidate(doc.Name)
		if err != nil {
			return nil, err
		}
		docs[i].Name = substituted
	}

	apworlds, err := ResolveGames(room, docs, resolved)
	if err != nil {
		return nil, err
	}

	if err := CheckQuota(ctx, room, submitterID, bundleID, p.Counter, p.Authorizer); err != nil {
		return nil, err
	}

	y := &models.YAML{
		RoomID:             room.ID,
		OwnerID:            submitterID,
		BundleID:           bundleID,
		RawContent:         rawYAML,
		ParsedPlayerName:   docs[0].Name,
		ValidationStatus:   models.StatusPending,
		LastValidationTime: time.Now(),
	}

	if !room.YAMLValidation {
		y.ValidationStatus = models.StatusUnknown
		y.ResolvedApworlds = nil
		if err := p.Store.CreateYAML(ctx, y); err != nil {
			return nil, apperror.WrapInternal(err, "create yaml row")
		}
		return y, nil
	}

	if err := p.Store.CreateYAML(ctx, y); err != nil {
		return nil, apperror.WrapInternal(err, "create yaml row")
	}

	jobID, err := p.Queue.Enqueue(ctx, Params{Apworlds: apworlds, YAML: rawYAML}, queue.PriorityNormal, time.Now().Add(30*time.Second))
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.SyncTimeout)
	defer cancel()
	result, err := p.Queue.WaitForJob(waitCtx, jobID)
	if err != nil {
		_, _ = p.Queue.Cancel(ctx, jobID)
		return nil, apperror.Timeout("validation did not complete within %s: service overloaded", p.SyncTimeout)
	}

	switch result.Status {
	case queue.StatusSuccess:
		y.ValidationStatus = models.StatusValidated
		y.ResolvedApworlds = result.Result.ResolvedApworlds
		y.LastError = ""
	case queue.StatusFailure:
		if !room.AllowInvalidYAMLs {
			return nil, apperror.InvalidInput("validation failed: %s", result.Result.Error)
		}
		y.ValidationStatus = models.StatusFailed
		y.LastError = result.Result.Error
	default: // StatusInternalError
		return nil, apperror.Internal("validation failed internally: %s", result.Result.Error)
	}
	y.LastValidationTime = time.Now()

	if err := p.Store.UpdateYAMLValidation(ctx, y.ID, y.ValidationStatus, y.ResolvedApworlds, y.LastError, y.LastValidationTime); err != nil {
		return nil, apperror.WrapInternal(err, "persist validation result")
	}
	return y, nil
}

// SubmitRevalidation handles spec.md §4.3's asynchronous mode
// (`yaml_id = Some(id)`): enqueue only, and let the resolver callback
// update the row once the job resolves.
func (p *Pipeline) SubmitRevalidation(ctx context.Context, y *models.YAML, apworlds []models.NameVersion) (queue.JobID, error) {
	yamlID := y.ID
	return p.Queue.Enqueue(ctx, Params{Apworlds: apworlds, YAML: y.RawContent, YAMLID: &yamlID}, queue.PriorityNormal, time.Now().Add(30*time.Second))
}
