package generation

import (
	"testing"
	"time"

	"github.com/odvcencio/roomhub/internal/models"
)

func closedRoom() *models.Room {
	return &models.Room{ID: 1, CloseDate: time.Now().Add(-time.Hour)}
}

func validatedYAML(id int64) *models.YAML {
	return &models.YAML{ID: id, ValidationStatus: models.StatusValidated}
}

func TestCheckPreflightRejectsOpenRoom(t *testing.T) {
	room := &models.Room{ID: 1, CloseDate: time.Now().Add(time.Hour)}
	yamls := []*models.YAML{validatedYAML(1)}

	if err := CheckPreflight(room, yamls, nil, false); err == nil {
		t.Fatal("expected open room to fail pre-flight")
	}
}

func TestCheckPreflightRejectsOutOfRangeYAMLCount(t *testing.T) {
	room := closedRoom()

	if err := CheckPreflight(room, nil, nil, true); err == nil {
		t.Fatal("expected empty room to fail pre-flight")
	}

	var tooMany []*models.YAML
	for i := int64(0); i < maxYAMLsForGeneration+1; i++ {
		tooMany = append(tooMany, validatedYAML(i))
	}
	if err := CheckPreflight(room, tooMany, nil, true); err == nil {
		t.Fatal("expected over-limit room to fail pre-flight")
	}
}

func TestCheckPreflightRejectsUnvalidatedYAML(t *testing.T) {
	room := closedRoom()
	yamls := []*models.YAML{validatedYAML(1), {ID: 2, ValidationStatus: models.StatusPending}}

	if err := CheckPreflight(room, yamls, nil, true); err == nil {
		t.Fatal("expected a pending yaml to fail pre-flight")
	}
}

func TestCheckPreflightRejectsInProgressGeneration(t *testing.T) {
	room := closedRoom()
	yamls := []*models.YAML{validatedYAML(1)}
	existing := &models.GenerationRecord{RoomID: room.ID, Status: models.GenerationRunning}

	if err := CheckPreflight(room, yamls, existing, true); err == nil {
		t.Fatal("expected in-progress generation to fail pre-flight")
	}
}

func TestCheckPreflightAllowsManuallyValidatedAndDoneGeneration(t *testing.T) {
	room := closedRoom()
	yamls := []*models.YAML{validatedYAML(1), {ID: 2, ValidationStatus: models.StatusManuallyValidated}}
	existing := &models.GenerationRecord{RoomID: room.ID, Status: models.GenerationDone}

	if err := CheckPreflight(room, yamls, existing, true); err != nil {
		t.Fatalf("expected pre-flight to pass, got %v", err)
	}
}

func TestRequiredApworldsDedupesAcrossYAMLs(t *testing.T) {
	yamls := []*models.YAML{
		{ID: 1, ResolvedApworlds: []models.NameVersion{{Name: "bar", Version: "2.0.0"}, {Name: "foo", Version: "1.0.0"}}},
		{ID: 2, ResolvedApworlds: []models.NameVersion{{Name: "foo", Version: "1.0.0"}}},
	}

	got := RequiredApworlds(yamls)

	if len(got) != 2 {
		t.Fatalf("expected 2 distinct apworlds, got %d", len(got))
	}
	if got[0].Name != "bar" || got[1].Name != "foo" {
		t.Fatalf("expected deterministic name order, got %+v", got)
	}
}
