package processor

import (
	"regexp"

	"github.com/pawtograder/triage/internal/category"
	"github.com/pawtograder/triage/internal/types"
)

// SkipCheck is one composable skip predicate. When Applies returns true
// the job is marked skipped with the check's reason and the provider is
// never called, so skips are always non-billing.
type SkipCheck struct {
	Reason  string
	Applies func(g *types.ErrorGroup) bool
}

// uninformativeCategories are the categories whose groups are only worth a
// provider call when they carry some concrete detail.
var uninformativeCategories = map[string]bool{
	category.IDUnknown:          true,
	category.IDGenericException: true,
}

// minInformativeLen is the shortest normalized text considered to carry
// enough signal to prompt on.
const minInformativeLen = 24

// defaultGatingPatterns match messages that indicate the grader never ran
// the student code, so there is nothing for a model to explain.
var defaultGatingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)not yet satisfied`),
	regexp.MustCompile(`(?i)prerequisites? not met`),
	regexp.MustCompile(`(?i)submission limit (reached|exceeded)`),
}

// buildSkipChecks assembles the skip chain: explicit category matches
// first, then gating-message patterns, then the informative-detail
// heuristic. Extra categories and patterns come from the run manifest.
func buildSkipChecks(extraCategories []string, extraPatterns []*regexp.Regexp) []SkipCheck {
	skipCategories := map[string]bool{
		category.IDDependencyGating: true,
	}
	for _, id := range extraCategories {
		skipCategories[id] = true
	}

	patterns := append([]*regexp.Regexp{}, defaultGatingPatterns...)
	patterns = append(patterns, extraPatterns...)

	return []SkipCheck{
		{
			Reason: "gated category",
			Applies: func(g *types.ErrorGroup) bool {
				if skipCategories[g.CategoryID] {
					return true
				}
				// The dataset's own error_type column can carry the
				// gating label even when text classification differs.
				if g.ErrorTypes != nil {
					if mode, ok := g.ErrorTypes.Mode(); ok && skipCategories[mode] {
						return true
					}
				}
				return false
			},
		},
		{
			Reason: "gating message",
			Applies: func(g *types.ErrorGroup) bool {
				for _, p := range patterns {
					if p.MatchString(g.CleanText) {
						return true
					}
				}
				return false
			},
		},
		{
			Reason: "no informative detail",
			Applies: func(g *types.ErrorGroup) bool {
				if !uninformativeCategories[g.CategoryID] {
					return false
				}
				return len(g.CleanText) < minInformativeLen && len(g.Examples) == 0
			},
		},
	}
}
