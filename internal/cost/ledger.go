// Package cost maintains the append-only usage ledger: one entry per
// billed provider call, plus per-model summaries rebuilt from the entries.
//
// The ledger is an explicit service object with a constructor-injected
// document path and a load/append/flush lifecycle, so tests instantiate
// isolated ledgers instead of sharing ambient state. It is independent of
// the main control flow: a ledger failure is logged, never propagated into
// job outcomes.
package cost

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawtograder/triage/internal/types"
)

// Entry is one appended usage record.
type Entry struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Strategy         string    `json:"strategy"`
	Fingerprint      string    `json:"fingerprint"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	ResponseID       string    `json:"response_id,omitempty"`
}

// ModelSummary aggregates all entries for one model.
type ModelSummary struct {
	Model            string  `json:"model"`
	Requests         int     `json:"requests"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// document is the persisted ledger shape: the raw entries plus summaries
// rebuilt on every flush.
type document struct {
	Entries   []Entry                 `json:"entries"`
	Summaries map[string]ModelSummary `json:"summaries"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Ledger is the cost accounting service. Construct with Open.
type Ledger struct {
	mu      sync.Mutex
	path    string
	pricing Pricing
	doc     document
}

// Open loads the ledger document at path, starting empty when it is
// missing or unparseable.
func Open(path string, pricing Pricing) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		pricing: pricing,
		doc:     document{Summaries: make(map[string]ModelSummary)},
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &l.doc); err != nil {
		// Corrupt ledger loses history but must not block processing.
		l.doc = document{Summaries: make(map[string]ModelSummary)}
	}
	if l.doc.Summaries == nil {
		l.doc.Summaries = make(map[string]ModelSummary)
	}
	return l, nil
}

// Price computes the cost of usage under model without recording
// anything, so callers can persist the priced usage alongside the job
// before the ledger append.
func (l *Ledger) Price(model string, usage *types.UsageMetadata) float64 {
	if usage == nil {
		return 0
	}
	return l.pricing.Cost(model, usage.PromptTokens, usage.CompletionTokens)
}

// Record appends one usage entry for a completed job and flushes the
// document. A CostUSD already set on usage (via Price) is kept; otherwise
// the entry is priced here.
func (l *Ledger) Record(combo types.Combination, fingerprint string, usage *types.UsageMetadata) error {
	if usage == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cost := usage.CostUSD
	if cost == 0 {
		cost = l.pricing.Cost(combo.Model, usage.PromptTokens, usage.CompletionTokens)
		usage.CostUSD = cost
	}

	l.doc.Entries = append(l.doc.Entries, Entry{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		Model:            combo.Model,
		Strategy:         combo.Strategy,
		Fingerprint:      fingerprint,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CostUSD:          cost,
		ResponseID:       usage.ResponseID,
	})
	l.rebuildSummariesLocked()
	return l.flushLocked()
}

// Summaries returns the per-model summaries sorted by descending cost.
func (l *Ledger) Summaries() []ModelSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ModelSummary, 0, len(l.doc.Summaries))
	for _, s := range l.doc.Summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CostUSD != out[j].CostUSD {
			return out[i].CostUSD > out[j].CostUSD
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Entries returns a copy of all ledger entries in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.doc.Entries))
	copy(out, l.doc.Entries)
	return out
}

// TotalCost returns the all-time cost across models.
func (l *Ledger) TotalCost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, e := range l.doc.Entries {
		total += e.CostUSD
	}
	return total
}

// ExportCSV writes all entries as CSV to w.
func (l *Ledger) ExportCSV(w io.Writer) error {
	entries := l.Entries()

	cw := csv.NewWriter(w)
	header := []string{"id", "timestamp", "model", "strategy", "fingerprint",
		"prompt_tokens", "completion_tokens", "total_tokens", "cost_usd", "response_id"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.Timestamp.Format(time.RFC3339),
			e.Model,
			e.Strategy,
			e.Fingerprint,
			strconv.FormatInt(e.PromptTokens, 10),
			strconv.FormatInt(e.CompletionTokens, 10),
			strconv.FormatInt(e.TotalTokens, 10),
			strconv.FormatFloat(e.CostUSD, 'f', 6, 64),
			e.ResponseID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reset discards all entries and summaries and flushes the empty document.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc = document{Summaries: make(map[string]ModelSummary)}
	return l.flushLocked()
}

// rebuildSummariesLocked recomputes per-model summaries from the entry
// list. Caller holds l.mu.
func (l *Ledger) rebuildSummariesLocked() {
	summaries := make(map[string]ModelSummary, len(l.doc.Summaries))
	for _, e := range l.doc.Entries {
		s := summaries[e.Model]
		s.Model = e.Model
		s.Requests++
		s.PromptTokens += e.PromptTokens
		s.CompletionTokens += e.CompletionTokens
		s.TotalTokens += e.TotalTokens
		s.CostUSD += e.CostUSD
		summaries[e.Model] = s
	}
	l.doc.Summaries = summaries
}

// flushLocked writes the document through a temp file and rename. Caller
// holds l.mu.
func (l *Ledger) flushLocked() error {
	l.doc.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&l.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
