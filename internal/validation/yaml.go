// Package validation implements the YAML submission pipeline spec.md
// §4.3: document parsing, player-name validation, per-room quota
// enforcement, and the idempotent resolver callback that writes a
// validation job's terminal result back onto the YAML record.
package validation

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/roomhub/internal/apperror"
)

// ParsedDocument is one `---`-separated document's parsed shape:
// `{ name, game }` where game is either a single string or a weighted map.
type ParsedDocument struct {
	Name  string
	Games []GameEntry
}

// GameEntry is one game name with its selection weight. String-form game
// documents produce a single GameEntry with Weight 1.
type GameEntry struct {
	Name   string
	Weight float64
}

// rawDocument is the on-the-wire shape before weight normalization.
type rawDocument struct {
	Name string      `yaml:"name"`
	Game interface{} `yaml:"game"`
}

// ParseDocuments strips a UTF-8 BOM, collapses leading/trailing `---`
// document separators, and parses every remaining document (spec.md
// §4.3 "Parsing").
func ParseDocuments(raw string) ([]ParsedDocument, error) {
	raw = stripBOM(raw)
	chunks := splitDocuments(raw)

	docs := make([]ParsedDocument, 0, len(chunks))
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		var rd rawDocument
		if err := yaml.Unmarshal([]byte(chunk), &rd); err != nil {
			return nil, apperror.WrapInvalidInput(err, fmt.Sprintf("parse document %d", i))
		}
		if rd.Name == "" {
			return nil, apperror.InvalidInput("document %d missing required field %q", i, "name")
		}
		games, err := extractGames(rd.Game)
		if err != nil {
			return nil, apperror.WrapInvalidInput(err, fmt.Sprintf("document %d field %q", i, "game"))
		}
		docs = append(docs, ParsedDocument{Name: rd.Name, Games: games})
	}
	if len(docs) == 0 {
		return nil, apperror.InvalidInput("yaml text contains no documents")
	}
	return docs, nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "﻿")
}

func splitDocuments(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "---")
	s = strings.TrimSuffix(s, "---")
	return strings.Split(s, "\n---")
}

// extractGames implements spec.md §4.3's "Game extraction": for a string
// value, the single named game at weight 1; for a map value, every entry
// with weight > 0.
func extractGames(game interface{}) ([]GameEntry, error) {
	switch v := game.(type) {
	case string:
		if v == "" {
			return nil, apperror.InvalidInput("game name must not be empty")
		}
		return []GameEntry{{Name: v, Weight: 1}}, nil
	case map[string]interface{}:
		entries := make([]GameEntry, 0, len(v))
		for name, weightRaw := range v {
			weight, ok := toFloat(weightRaw)
			if !ok {
				return nil, apperror.InvalidInput("game %q weight must be numeric", name)
			}
			if weight <= 0 {
				continue
			}
			entries = append(entries, GameEntry{Name: name, Weight: weight})
		}
		if len(entries) == 0 {
			return nil, apperror.InvalidInput("weighted game map has no entries with weight > 0")
		}
		return entries, nil
	default:
		return nil, apperror.InvalidInput("game must be a string or a weighted map")
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
