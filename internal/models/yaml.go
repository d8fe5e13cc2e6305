package models

import "time"

// ValidationStatus is the lifecycle of a YAML record (spec §3).
type ValidationStatus string

const (
	StatusUnknown           ValidationStatus = "unknown"
	StatusPending           ValidationStatus = "pending"
	StatusValidated         ValidationStatus = "validated"
	StatusManuallyValidated ValidationStatus = "manually_validated"
	StatusFailed            ValidationStatus = "failed"
)

// IsResolved reports whether status is one that carries a pinned,
// non-empty ResolvedApworlds set (spec §3 invariant).
func (s ValidationStatus) IsResolved() bool {
	return s == StatusValidated || s == StatusManuallyValidated
}

// YAML is a single player's submitted configuration within a Room.
type YAML struct {
	ID                 int64            `json:"id"`
	RoomID             int64            `json:"room_id"`
	OwnerID            int64            `json:"owner_id"`
	BundleID           string           `json:"bundle_id,omitempty"`
	RawContent         string           `json:"raw_content"`
	ParsedGame         string           `json:"parsed_game"`
	ParsedPlayerName   string           `json:"parsed_player_name"`
	ValidationStatus   ValidationStatus `json:"validation_status"`
	ResolvedApworlds   []NameVersion    `json:"resolved_apworlds"`
	LastValidationTime time.Time        `json:"last_validation_time"`
	LastError          string           `json:"last_error,omitempty"`
	PatchFile          *string          `json:"patch_file,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ResolvedApworldSet returns ResolvedApworlds as a set keyed by name, for
// set-equality comparisons (should_revalidate, spec §4.2/§8).
func (y *YAML) ResolvedApworldSet() map[string]string {
	out := make(map[string]string, len(y.ResolvedApworlds))
	for _, nv := range y.ResolvedApworlds {
		out[nv.Name] = nv.Version
	}
	return out
}
