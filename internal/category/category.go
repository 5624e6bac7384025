// Package category classifies normalized error text into one labeled
// category via ordered pattern rules.
//
// The catalog is a closed, ordered list evaluated short-circuit: for each
// category in order, the first pattern that matches wins. Categories are
// deliberately ordered most-specific first (a particular null-safety
// violation subtype before the broad null-pointer catch-all), so the order
// is part of the contract. Reordering the catalog changes classification
// results and must be treated as a breaking change.
package category

import "regexp"

// Category is one entry in the catalog: a stable identifier, a display
// name, and the ordered detection patterns for it.
type Category struct {
	ID       string
	Name     string
	patterns []*regexp.Regexp
}

// Matches reports whether any of the category's patterns match text.
func (c *Category) Matches(text string) bool {
	for _, p := range c.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Well-known category IDs referenced by skip predicates and tests.
const (
	IDDependencyGating   = "dependency_gating"
	IDMutationSurvived   = "mutation_survived"
	IDAssertionMismatch  = "assertion_mismatch"
	IDNullSafetyContract = "null_safety_contract"
	IDNullPointer        = "null_pointer"
	IDCompilation        = "compilation_error"
	IDTimeout            = "test_timeout"
	IDOutOfMemory        = "out_of_memory"
	IDStackOverflow      = "stack_overflow"
	IDIndexOutOfBounds   = "index_out_of_bounds"
	IDClassCast          = "class_cast"
	IDNumberFormat       = "number_format"
	IDConcurrentMod      = "concurrent_modification"
	IDUnsupportedOp      = "unsupported_operation"
	IDIllegalArgument    = "illegal_argument"
	IDIllegalState       = "illegal_state"
	IDGenericException   = "generic_exception"
	IDUnknown            = "unknown"
)

func mustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// catalog is the closed ordered category list. Do not reorder.
var catalog = []*Category{
	{
		ID:   IDDependencyGating,
		Name: "Dependency Gating",
		patterns: mustPatterns(
			`(?i)not yet satisfied`,
			`(?i)prerequisites? not met`,
			`(?i)depends on .* which has not`,
		),
	},
	{
		ID:   IDMutationSurvived,
		Name: "Mutation Testing",
		patterns: mustPatterns(
			`(?i)mutations? survived`,
			`(?i)mutation (score|coverage)`,
			`(?i)pitest`,
		),
	},
	{
		ID:   IDAssertionMismatch,
		Name: "Assertion Mismatch",
		patterns: mustPatterns(
			`expected:<EXPECTED> but was:<ACTUAL>`,
			`expected:\s*<.*> but was:\s*<.*>`,
			`AssertionFailedError`,
			`ComparisonFailure`,
		),
	},
	// Null-safety contract violations are a specific subtype and must be
	// checked before the generic null-pointer catch-all below.
	{
		ID:   IDNullSafetyContract,
		Name: "Null-Safety Contract Violation",
		patterns: mustPatterns(
			`@NonNull .* must not be null`,
			`(?i)parameter .* is marked non-null but is null`,
			`(?i)return value .* must not be null`,
		),
	},
	{
		ID:   IDNullPointer,
		Name: "Null Pointer",
		patterns: mustPatterns(
			`NullPointerException`,
			`(?i)because .* is null`,
		),
	},
	{
		ID:   IDCompilation,
		Name: "Compilation Error",
		patterns: mustPatterns(
			`(?i)compilation failed`,
			`(?i)cannot find symbol`,
			`(?i)incompatible types`,
			`error: .*\.java`,
		),
	},
	{
		ID:   IDTimeout,
		Name: "Test Timeout",
		patterns: mustPatterns(
			`(?i)timed? ?out after`,
			`TimeoutException`,
		),
	},
	{
		ID:   IDOutOfMemory,
		Name: "Out of Memory",
		patterns: mustPatterns(
			`OutOfMemoryError`,
			`(?i)java heap space`,
			`(?i)GC overhead limit exceeded`,
		),
	},
	{
		ID:       IDStackOverflow,
		Name:     "Stack Overflow",
		patterns: mustPatterns(`StackOverflowError`),
	},
	{
		ID:   IDIndexOutOfBounds,
		Name: "Index Out of Bounds",
		patterns: mustPatterns(
			`IndexOutOfBoundsException`,
			`ArrayIndexOutOfBoundsException`,
			`StringIndexOutOfBoundsException`,
		),
	},
	{
		ID:       IDClassCast,
		Name:     "Class Cast",
		patterns: mustPatterns(`ClassCastException`),
	},
	{
		ID:       IDNumberFormat,
		Name:     "Number Format",
		patterns: mustPatterns(`NumberFormatException`),
	},
	{
		ID:       IDConcurrentMod,
		Name:     "Concurrent Modification",
		patterns: mustPatterns(`ConcurrentModificationException`),
	},
	{
		ID:       IDUnsupportedOp,
		Name:     "Unsupported Operation",
		patterns: mustPatterns(`UnsupportedOperationException`),
	},
	{
		ID:       IDIllegalArgument,
		Name:     "Illegal Argument",
		patterns: mustPatterns(`IllegalArgumentException`),
	},
	{
		ID:       IDIllegalState,
		Name:     "Illegal State",
		patterns: mustPatterns(`IllegalStateException`),
	},
	// Broad catch-all for any remaining exception signal. Must stay last.
	{
		ID:   IDGenericException,
		Name: "Uncaught Exception",
		patterns: mustPatterns(
			`\w+Exception\b`,
			`\w+Error\b`,
		),
	},
}

// Unknown is the bucket for text no catalog pattern matched.
var Unknown = &Category{ID: IDUnknown, Name: "Unknown"}

// Categorize returns the first category whose any pattern matches text, or
// nil when nothing matches. Callers map nil to Unknown.
func Categorize(text string) *Category {
	for _, c := range catalog {
		if c.Matches(text) {
			return c
		}
	}
	return nil
}

// Lookup returns the catalog entry for id, or nil. The Unknown bucket is
// addressable by its ID as well.
func Lookup(id string) *Category {
	if id == IDUnknown {
		return Unknown
	}
	for _, c := range catalog {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// IsAssertion reports whether id denotes an assertion-failure category,
// which takes the further-normalized assertion snippet as discriminant.
func IsAssertion(id string) bool {
	return id == IDAssertionMismatch
}

// All returns the catalog in contract order. The returned slice is shared;
// callers must not mutate it.
func All() []*Category {
	return catalog
}
