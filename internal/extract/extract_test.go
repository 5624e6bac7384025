package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCoreEmptyInput(t *testing.T) {
	assert.Equal(t, "", ExtractCore(""))
	assert.Equal(t, "", ExtractCore("   \n\t\n  "))
}

func TestExtractCoreDependencyBlock(t *testing.T) {
	raw := "some preamble\n" +
		"Prerequisites not met for this assignment\n" +
		"  - complete lab 3 first\n" +
		"  - score at least 80%\n" +
		"\n" +
		"trailing noise that must not be included"

	core := ExtractCore(raw)
	require.True(t, strings.HasPrefix(core, "Prerequisites not met"))
	assert.Contains(t, core, "complete lab 3 first")
	assert.NotContains(t, core, "trailing noise")
	assert.NotContains(t, core, "preamble")
}

func TestExtractCoreBlockWindowBound(t *testing.T) {
	lines := []string{"dependency on lab2 failed to resolve, depends on lab2 which has not been graded"}
	for i := 0; i < 60; i++ {
		lines = append(lines, "detail line")
	}
	core := ExtractCore(strings.Join(lines, "\n"))
	// Matching line plus at most 29 following lines.
	assert.LessOrEqual(t, len(strings.Split(core, "\n")), 30)
}

func TestExtractCoreMutationBlock(t *testing.T) {
	raw := "build ok\n12 mutations survived out of 40\nKilled: 28\n\nafter"
	core := ExtractCore(raw)
	assert.True(t, strings.HasPrefix(core, "12 mutations survived"))
	assert.Contains(t, core, "Killed: 28")
	assert.NotContains(t, core, "after")
}

func TestExtractCoreAssertionWindow(t *testing.T) {
	raw := strings.Join([]string{
		"running tests",
		"testWithdraw(BankTest)",
		"org.opentest4j.AssertionFailedError: expected:<2.0> but was:<2.5>",
		"	at BankTest.testWithdraw(BankTest.java:42)",
		"	at java.base/jdk.internal.reflect",
		"line6", "line7", "line8", "line9", "line10",
	}, "\n")

	core := ExtractCore(raw)
	lines := strings.Split(core, "\n")
	// 1 leading context + assertion line + up to 5 following.
	assert.LessOrEqual(t, len(lines), 7)
	assert.Equal(t, "testWithdraw(BankTest)", lines[0])
	assert.Contains(t, core, "expected:<2.0> but was:<2.5>")
	assert.NotContains(t, core, "line10")
}

func TestExtractCoreFallback(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "plain output with no recognizable signal "+strings.Repeat("x", 300))
	}
	core := ExtractCore(strings.Join(lines, "\n"))

	got := strings.Split(core, "\n")
	require.Len(t, got, fallbackLines)
	for _, l := range got {
		assert.LessOrEqual(t, len(l), fallbackLineLen)
	}
}

func TestExtractCoreFallbackSkipsBlankLines(t *testing.T) {
	core := ExtractCore("first\n\n\nsecond\n\nthird")
	assert.Equal(t, "first\nsecond\nthird", core)
}

func TestAssertionSnippet(t *testing.T) {
	tests := []struct {
		name string
		core string
		want string
	}{
		{
			name: "trailing zeros collapse",
			core: "expected:<2.0> but was:<2.5>",
			want: "expected:<2> but was:<2.5>",
		},
		{
			name: "more zeros same snippet",
			core: "expected:<2.00> but was:<2.50>",
			want: "expected:<2> but was:<2.5>",
		},
		{
			name: "scientific notation collapses",
			core: "expected:<1.5E10> but was:<3>",
			want: "expected:<LARGE_NUM> but was:<3>",
		},
		{
			name: "huge numeral collapses",
			core: "expected:<123456789012345678> but was:<0>",
			want: "expected:<LARGE_NUM> but was:<0>",
		},
		{
			name: "non-numeric untouched",
			core: "expected:<hello> but was:<world>",
			want: "expected:<hello> but was:<world>",
		},
		{
			name: "no assertion",
			core: "NullPointerException at Foo.java",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssertionSnippet(tt.core))
		})
	}
}

func TestAssertionSnippetEquivalentFormatting(t *testing.T) {
	a := AssertionSnippet("expected:<2.0> but was:<2.5>")
	b := AssertionSnippet("expected:<2.00> but was:<2.50>")
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}
