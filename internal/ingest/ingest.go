// Package ingest reads the row-oriented input datasets: raw grader log
// rows to be grouped, or pre-grouped rows produced by an earlier run.
// Column binding is header-driven so datasets can carry extra columns in
// any order.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pawtograder/triage/internal/types"
)

// header name sets accepted for each raw-record field.
var (
	submissionCols = []string{"submission_id", "submission", "result_id"}
	testNameCols   = []string{"test_name", "test", "unit"}
	errorTypeCols  = []string{"error_type", "category", "error_category"}
	outputCols     = []string{"grader_output", "build_output", "raw_output", "output", "error_output"}
)

// ReadRecords parses raw log rows from r. The first row must be a header.
// Rows shorter than the header are padded; completely blank rows are
// dropped.
func ReadRecords(r io.Reader) ([]*types.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := indexHeader(header)

	var records []*types.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+2, err)
		}

		rec := &types.RawRecord{
			SubmissionID: idx.get(row, submissionCols),
			TestName:     idx.get(row, testNameCols),
			ErrorType:    idx.get(row, errorTypeCols),
		}
		// First populated output column wins.
		for _, col := range outputCols {
			if v := idx.getOne(row, col); strings.TrimSpace(v) != "" {
				rec.GraderOutput = v
				break
			}
		}
		if rec.SubmissionID == "" && rec.TestName == "" && rec.OutputText() == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadRecordsFile reads raw log rows from a CSV file on disk.
func ReadRecordsFile(path string) ([]*types.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadGroups parses pre-grouped rows (fingerprint, canonical key, clean
// text, counts) from r, reconstructing error groups without re-running the
// pipeline.
func ReadGroups(r io.Reader) ([]*types.ErrorGroup, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := indexHeader(header)

	var groups []*types.ErrorGroup
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(groups)+2, err)
		}

		g := &types.ErrorGroup{
			Fingerprint:   idx.getOne(row, "fingerprint"),
			CanonicalKey:  idx.getOne(row, "canonical_key"),
			CategoryID:    idx.getOne(row, "category"),
			CategoryName:  idx.getOne(row, "category_name"),
			CleanText:     idx.getOne(row, "clean_text"),
			SubmissionIDs: make(map[string]struct{}),
			TestNames:     types.NewModeMap(),
			ErrorTypes:    types.NewModeMap(),
		}
		if g.Fingerprint == "" {
			continue
		}
		if count, err := strconv.Atoi(idx.getOne(row, "count")); err == nil {
			g.Count = count
		} else {
			g.Count = 1
		}
		g.TestNames.Add(idx.get(row, testNameCols))
		g.ErrorTypes.Add(idx.get(row, errorTypeCols))
		groups = append(groups, g)
	}
	return groups, nil
}

// columnIndex maps lowercased header names to positions.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func (idx columnIndex) getOne(row []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (idx columnIndex) get(row []string, cols []string) string {
	for _, col := range cols {
		if v := idx.getOne(row, col); v != "" {
			return v
		}
	}
	return ""
}
