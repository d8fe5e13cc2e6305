package worker

import (
	"context"
	"testing"

	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/validation"
)

func TestInProcessValidatorResolvesReferencedGames(t *testing.T) {
	v := NewInProcessValidator()
	params := validation.Params{
		YAML:     "name: Alice\ngame: Secret of Evermore",
		Apworlds: []models.NameVersion{{Name: "Secret of Evermore", Version: "1.0.0"}},
	}

	result := v.Execute(context.Background(), params)
	if result.Error != "" {
		t.Fatalf("expected no error, got %q", result.Error)
	}
	if len(result.ResolvedApworlds) != 1 || result.ResolvedApworlds[0].Version != "1.0.0" {
		t.Fatalf("expected resolved apworlds to include Secret of Evermore@1.0.0, got %#v", result.ResolvedApworlds)
	}
}

func TestInProcessValidatorRejectsUnresolvedGame(t *testing.T) {
	v := NewInProcessValidator()
	params := validation.Params{
		YAML:     "name: Alice\ngame: Unknown Game",
		Apworlds: []models.NameVersion{{Name: "Secret of Evermore", Version: "1.0.0"}},
	}

	result := v.Execute(context.Background(), params)
	if result.Error == "" {
		t.Fatal("expected an error for an unresolved game")
	}
}

func TestInProcessValidatorRejectsUnparseableYAML(t *testing.T) {
	v := NewInProcessValidator()
	result := v.Execute(context.Background(), validation.Params{YAML: "not: valid: yaml: at: all:"})
	if result.Error == "" {
		t.Fatal("expected an error for unparseable yaml")
	}
}
