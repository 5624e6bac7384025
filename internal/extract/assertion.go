package extract

import (
	"regexp"
	"strings"
)

// Assertion snippet extraction is the secondary pass used to derive the
// discriminant for assertion-failure categories. Two assertion failures
// that differ only in numeric formatting (trailing zeros, scientific
// notation, very large literals) should share a discriminant.

var (
	expectedActualRegex = regexp.MustCompile(`expected:\s*<(.*?)>\s*but was:\s*<(.*?)>`)

	// Scientific notation and numerals of 15+ digits carry no grouping
	// signal; both collapse to a single token.
	scientificRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?[eE][+-]?\d+`)
	hugeNumRegex    = regexp.MustCompile(`-?\d{15,}(?:\.\d+)?`)

	trailingZeroRegex = regexp.MustCompile(`(\d+)\.0+\b`)
	innerZeroRegex    = regexp.MustCompile(`(\d+\.\d*?)0+\b`)
)

// largeNumToken replaces numerals too volatile to group on.
const largeNumToken = "LARGE_NUM"

// AssertionSnippet extracts and normalizes the expected/actual pair from an
// assertion-failure core. Returns "" when the core carries no recognizable
// assertion, in which case the caller falls back to the test-name
// discriminant alone.
func AssertionSnippet(core string) string {
	m := expectedActualRegex.FindStringSubmatch(core)
	if m == nil {
		return ""
	}
	expected := normalizeAssertionValue(m[1])
	actual := normalizeAssertionValue(m[2])
	return "expected:<" + expected + "> but was:<" + actual + ">"
}

// normalizeAssertionValue strips numeric noise from one side of an
// assertion: 1.0 and 1.00 become 1, 2.50 becomes 2.5, scientific notation
// and 15+ digit numerals become LARGE_NUM.
func normalizeAssertionValue(v string) string {
	v = strings.TrimSpace(v)
	v = scientificRegex.ReplaceAllString(v, largeNumToken)
	v = hugeNumRegex.ReplaceAllString(v, largeNumToken)
	// 1.0 and 3.000 -> whole numbers first, then 2.50 -> 2.5.
	v = trailingZeroRegex.ReplaceAllString(v, "$1")
	v = innerZeroRegex.ReplaceAllString(v, "$1")
	return v
}
