// Package fingerprint builds canonical keys for normalized error text,
// hashes them into stable fingerprints, and aggregates records sharing a
// fingerprint into error groups.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/pawtograder/triage/internal/category"
	"github.com/pawtograder/triage/internal/extract"
	"github.com/pawtograder/triage/internal/normalize"
	"github.com/pawtograder/triage/internal/types"
)

// fingerprintLen is the number of hex characters kept from the SHA-256 of
// the canonical key. 64 bits is collision-resistant at corpus scale and
// short enough for filenames and log lines.
const fingerprintLen = 16

// CanonicalKey joins category, discriminant, and normalized text into the
// pre-hash string that fully determines a fingerprint.
func CanonicalKey(categoryID, discriminant, normalized string) string {
	return categoryID + "::" + discriminant + "::" + normalized
}

// Fingerprint hashes a canonical key into its short stable identifier.
func Fingerprint(canonicalKey string) string {
	sum := sha256.Sum256([]byte(canonicalKey))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Discriminant derives the grouping discriminant for a record: the
// assertion snippet for assertion-failure categories when one can be
// extracted, otherwise the test name, otherwise the Unknown Test
// placeholder.
func Discriminant(categoryID, core, testName string) string {
	if category.IsAssertion(categoryID) {
		if snippet := extract.AssertionSnippet(core); snippet != "" {
			return snippet
		}
	}
	if strings.TrimSpace(testName) != "" {
		return testName
	}
	return types.UnknownTest
}

// Group runs the full pipeline over records and aggregates them by
// fingerprint. Records with no usable output text are skipped entirely:
// they enter no group and count toward no total. The returned slice is
// sorted by descending occurrence count (ties by fingerprint) for
// reporting; the job processor treats it as an unordered set.
func Group(records []*types.RawRecord) []*types.ErrorGroup {
	byFP := make(map[string]*types.ErrorGroup)
	var order []string

	for _, rec := range records {
		raw := rec.OutputText()
		if raw == "" {
			continue
		}

		core := extract.ExtractCore(raw)
		normalized := normalize.Normalize(core)

		cat := category.Categorize(normalized)
		if cat == nil {
			cat = category.Categorize(core)
		}
		if cat == nil {
			cat = category.Unknown
		}

		discriminant := Discriminant(cat.ID, core, rec.TestName)
		key := CanonicalKey(cat.ID, discriminant, normalized)
		fp := Fingerprint(key)

		g, ok := byFP[fp]
		if !ok {
			g = &types.ErrorGroup{
				Fingerprint:   fp,
				CanonicalKey:  key,
				CategoryID:    cat.ID,
				CategoryName:  cat.Name,
				CleanText:     normalized,
				SubmissionIDs: make(map[string]struct{}),
				TestNames:     types.NewModeMap(),
				ErrorTypes:    types.NewModeMap(),
			}
			byFP[fp] = g
			order = append(order, fp)
		}

		g.Count++
		if rec.SubmissionID != "" {
			g.SubmissionIDs[rec.SubmissionID] = struct{}{}
		}
		if len(g.Examples) < types.MaxExamples {
			g.Examples = append(g.Examples, core)
		}
		g.TestNames.Add(rec.TestName)
		g.ErrorTypes.Add(rec.ErrorType)
	}

	groups := make([]*types.ErrorGroup, 0, len(byFP))
	for _, fp := range order {
		groups = append(groups, byFP[fp])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Fingerprint < groups[j].Fingerprint
	})
	return groups
}
