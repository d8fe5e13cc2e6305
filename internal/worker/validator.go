package worker

import (
	"context"
	"sort"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/validation"
)

// ValidatorExecutor is the worker-side seam for the validation queue:
// given a job's params, produce its terminal result. This repo ships
// InProcessValidator as a reference implementation good enough to
// exercise the pipeline end-to-end — full apworld archive inspection is
// explicitly out of scope (spec.md §1), but confirming a submission only
// references games the room's resolved manifest actually offers is not.
type ValidatorExecutor interface {
	Execute(ctx context.Context, params validation.Params) validation.Result
}

// InProcessValidator re-parses the submitted YAML and checks every
// referenced game name against the apworld list the submitting pipeline
// already resolved (validation.Params.Apworlds), rejecting any name that
// snapshot doesn't cover.
type InProcessValidator struct{}

func NewInProcessValidator() *InProcessValidator { return &InProcessValidator{} }

func (v *InProcessValidator) Execute(ctx context.Context, params validation.Params) validation.Result {
	result := validation.Result{SubmittedAt: time.Now(), YAMLID: params.YAMLID}

	docs, err := validation.ParseDocuments(params.YAML)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	available := make(map[string]models.NameVersion, len(params.Apworlds))
	for _, nv := range params.Apworlds {
		available[nv.Name] = nv
	}

	required := make(map[string]bool)
	for _, doc := range docs {
		for _, game := range doc.Games {
			if _, ok := available[game.Name]; !ok {
				result.Error = apperror.InvalidInput("game %q is not in the resolved apworld list", game.Name).Error()
				return result
			}
			required[game.Name] = true
		}
	}

	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	resolved := make([]models.NameVersion, 0, len(names))
	for _, name := range names {
		resolved = append(resolved, available[name])
	}
	result.ResolvedApworlds = resolved
	return result
}
