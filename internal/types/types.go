// Package types defines the shared data model for the triage pipeline:
// raw grader records, error groups, model/strategy combinations, and the
// per-combination processing state that makes runs crash-resumable.
package types

import (
	"fmt"
	"strings"
	"time"
)

// RawRecord is one row of grader/build output as ingested from the dataset.
// Exactly one of the output fields is populated per row by convention; the
// first non-empty one wins (see OutputText).
type RawRecord struct {
	SubmissionID string `json:"submission_id,omitempty"`
	TestName     string `json:"test_name,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`

	// Candidate output fields, checked in order.
	GraderOutput string `json:"grader_output,omitempty"`
	BuildOutput  string `json:"build_output,omitempty"`
	RawOutput    string `json:"raw_output,omitempty"`
}

// OutputText returns the first populated output field, or "" if the record
// carries no usable text. Records with no usable text are skipped by the
// grouper and never enter any group.
func (r *RawRecord) OutputText() string {
	for _, s := range []string{r.GraderOutput, r.BuildOutput, r.RawOutput} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// UnknownTest is the discriminant placeholder for records whose test name
// cannot be determined. Such records are still grouped, never dropped.
const UnknownTest = "Unknown Test"

// ErrorGroup aggregates every record that hashed to the same fingerprint.
type ErrorGroup struct {
	Fingerprint  string `json:"fingerprint"`
	CanonicalKey string `json:"canonical_key"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`

	// CleanText is the normalized core shared by every member record.
	CleanText string `json:"clean_text"`

	// Count is the number of raw records mapped to this fingerprint.
	Count int `json:"count"`

	// SubmissionIDs is the set of distinct submission identifiers seen.
	SubmissionIDs map[string]struct{} `json:"-"`

	// Examples holds up to MaxExamples retained cores, first-seen wins.
	Examples []string `json:"examples,omitempty"`

	// TestNames counts occurrences per observed test name so a
	// representative name can be picked by plurality.
	TestNames *ModeMap `json:"test_names,omitempty"`

	// ErrorTypes counts occurrences per observed error_type column value.
	ErrorTypes *ModeMap `json:"error_types,omitempty"`
}

// MaxExamples caps the retained example cores per group.
const MaxExamples = 2

// RepresentativeTest returns the plurality test name for the group, or
// UnknownTest when none was ever observed.
func (g *ErrorGroup) RepresentativeTest() string {
	if g.TestNames == nil {
		return UnknownTest
	}
	if name, ok := g.TestNames.Mode(); ok {
		return name
	}
	return UnknownTest
}

// ModeMap tracks counts per observed value of one group dimension and picks
// a representative value by plurality. Tie-break rule: highest count wins;
// on equal counts the first-encountered value wins (insertion order is
// tracked explicitly, never map iteration order).
type ModeMap struct {
	Counts map[string]int `json:"counts"`
	order  []string
}

// NewModeMap returns an empty mode map.
func NewModeMap() *ModeMap {
	return &ModeMap{Counts: make(map[string]int)}
}

// Add records one observation of value. Empty values are ignored.
func (m *ModeMap) Add(value string) {
	if value == "" {
		return
	}
	if _, seen := m.Counts[value]; !seen {
		m.order = append(m.order, value)
	}
	m.Counts[value]++
}

// Mode returns the plurality value, applying the documented tie-break.
// The second return is false when the map is empty.
func (m *ModeMap) Mode() (string, bool) {
	best, bestCount := "", 0
	for _, v := range m.order {
		if c := m.Counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best, bestCount > 0
}

// Len returns the number of distinct values observed.
func (m *ModeMap) Len() int {
	return len(m.Counts)
}

// Combination is a (model, prompt strategy) pair: the unit of work
// partitioning and state tracking for the job processor.
type Combination struct {
	Model    string `json:"model" yaml:"model"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

// Validate checks that both halves of the combination are present.
func (c Combination) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("combination model is required")
	}
	if strings.TrimSpace(c.Strategy) == "" {
		return fmt.Errorf("combination strategy is required")
	}
	return nil
}

// Key returns a filesystem-safe encoding of the combination used to name
// its persisted state document. Path separators and other awkward
// characters in model names are flattened to underscores.
func (c Combination) Key() string {
	return sanitizeKeyPart(c.Model) + "__" + sanitizeKeyPart(c.Strategy)
}

func (c Combination) String() string {
	return c.Model + "/" + c.Strategy
}

func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// UsageMetadata is optional token/cost accounting attached to a processing
// state entry and appended to the cost ledger.
type UsageMetadata struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
	ResponseID       string  `json:"response_id,omitempty"`
}

// ProcessingStateEntry records the terminal result for one
// (combination, fingerprint) job. Once persisted it is never overwritten
// by a later run; that is the idempotency guarantee across restarts.
type ProcessingStateEntry struct {
	Response    string         `json:"response"`
	ProcessedAt time.Time      `json:"processed_at"`
	Usage       *UsageMetadata `json:"usage,omitempty"`
}

// JobOutcome is the terminal state of one job. Jobs start pending and move
// to exactly one of these; there are no further transitions.
type JobOutcome string

const (
	OutcomeCompleted JobOutcome = "completed"
	OutcomeSkipped   JobOutcome = "skipped"
	OutcomeFailed    JobOutcome = "failed"
)
