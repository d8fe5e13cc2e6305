package validation

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/odvcencio/roomhub/internal/apperror"
)

var reservedNames = map[string]bool{
	"meta":        true,
	"archipelago": true,
}

// NameCounters tracks the counters spec.md's GLOSSARY "Name substitution"
// entry describes: a per-name occurrence counter for {NUMBER}/{number}
// and a submission counter for {PLAYER}/{player}. Both counters and the
// duplicate-name set cover only the names passed to one NameCounters
// value; SubmitInteractive creates a fresh one per upload, so names
// already stored in the room are neither counted nor checked.
type NameCounters struct {
	perName    map[string]int
	submission int
	seen       map[string]bool // substituted names already used, lowercased
}

// NewNameCounters constructs empty counters for a fresh submission batch.
func NewNameCounters() *NameCounters {
	return &NameCounters{perName: make(map[string]int), seen: make(map[string]bool)}
}

// SubstituteAndValidate validates raw per spec.md §4.3's ASCII/balanced-
// brace rules, substitutes its tokens using c, checks it against the
// reserved-name list and the names already seen in this batch, and
// returns the final name. c is mutated: the per-name and submission
// counters advance, and the returned name is recorded as seen.
func (c *NameCounters) SubstituteAndValidate(raw string) (string, error) {
	if !isASCII(raw) {
		return "", apperror.InvalidInput("player name %q is not ASCII", raw)
	}
	if err := checkBalancedTokens(raw); err != nil {
		return "", err
	}

	c.submission++
	key := strings.ToLower(raw)
	c.perName[key]++

	substituted := substitute(raw, c.perName[key], c.submission)
	substituted = strings.TrimLeft(substituted, " \t")
	if len(substituted) > 16 {
		substituted = substituted[:16]
	}
	substituted = strings.TrimRight(substituted, " \t")

	lower := strings.ToLower(substituted)
	if reservedNames[lower] {
		return "", apperror.InvalidInput("player name %q resolves to a reserved name", raw)
	}
	if c.seen[lower] {
		return "", apperror.InvalidInput("player name %q duplicates another name in this room", raw)
	}
	c.seen[lower] = true

	return substituted, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

var substitutionTokens = []string{"{PLAYER}", "{player}", "{NUMBER}", "{number}"}

// checkBalancedTokens verifies every `{` / `}` in s belongs to one of the
// four recognized tokens (spec.md §4.3).
func checkBalancedTokens(s string) error {
	i := 0
	for i < len(s) {
		switch s[i] {
		case '{':
			matched := false
			for _, tok := range substitutionTokens {
				if strings.HasPrefix(s[i:], tok) {
					i += len(tok)
					matched = true
					break
				}
			}
			if !matched {
				return apperror.InvalidInput("player name %q has an unbalanced or unrecognized brace token", s)
			}
		case '}':
			return apperror.InvalidInput("player name %q has an unbalanced or unrecognized brace token", s)
		default:
			i++
		}
	}
	return nil
}

// substitute replaces {NUMBER}/{number} with nameOccurrence and
// {PLAYER}/{player} with submissionCount, per the GLOSSARY's "Name
// substitution" rule: the uppercase token variants suppress the literal
// "1" on each counter's first occurrence.
func substitute(s string, nameOccurrence, submissionCount int) string {
	s = replaceToken(s, "{NUMBER}", nameOccurrence, true)
	s = replaceToken(s, "{number}", nameOccurrence, false)
	s = replaceToken(s, "{PLAYER}", submissionCount, true)
	s = replaceToken(s, "{player}", submissionCount, false)
	return s
}

func replaceToken(s, token string, count int, suppressFirst bool) string {
	replacement := strconv.Itoa(count)
	if suppressFirst && count == 1 {
		replacement = ""
	}
	return strings.ReplaceAll(s, token, replacement)
}
