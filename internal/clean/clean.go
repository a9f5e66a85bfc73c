// SPDX-License-Identifier: MIT

// Package clean harmonizes raw survey extracts into keyed panel frames.
// All variable renames are driven by dictionaries from the meta package;
// the only names this package knows are the harmonized key columns and
// the derived score prefix.
package clean

import (
	"strings"
)

// Harmonized key and demographic columns shared by every cleaned dataset.
const (
	ColChildID    = "childid"
	ColYear       = "year"
	ColMomID      = "momid"
	ColAge        = "age"
	ColBirthOrder = "birth_order"
)

// ScorePrefix prefixes derived subscale score columns: bpi_<subscale>.
const ScorePrefix = "bpi_"

// AnswerLevels is the ordered categorical scale for Behavior Problems Index
// items: not true < sometimes true < often true.
var AnswerLevels = []string{"not true", "sometimes true", "often true"}

// Options controls dataset cleaning.
type Options struct {
	// MissingCodes are numeric codes that encode missing answers in the
	// raw extract (e.g. -7).
	MissingCodes []float64
}

// DefaultOptions mirror the conventions of the NLSY79-Children extracts.
func DefaultOptions() Options {
	return Options{MissingCodes: []float64{-7}}
}

func (o Options) isMissingCode(v float64) bool {
	for _, c := range o.MissingCodes {
		if v == c {
			return true
		}
	}
	return false
}

// missingNumeric reports whether a raw numeric value encodes a missing
// answer: a configured code or a Stata-style negative special value.
func (o Options) missingNumeric(v float64) bool {
	return v < 0 || o.isMissingCode(v)
}

// normalizeAnswer maps a raw BPI answer to its level code. Recognized
// answers are matched case- and space-insensitively; numeric missing codes
// and anything unrecognized map to -1 (missing).
func (o Options) normalizeAnswer(raw string) int {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return -1
	}
	for code, level := range AnswerLevels {
		if v == level {
			return code
		}
	}
	return -1
}

// binaryScore maps a level code to its 0/1 scoring value:
// not true -> 0, sometimes/often true -> 1.
func binaryScore(code int) (float64, bool) {
	switch {
	case code < 0:
		return 0, false
	case code == 0:
		return 0, true
	default:
		return 1, true
	}
}
