// Package extract reduces raw multi-line grader output to the minimal
// diagnostic excerpt (the "core") that downstream normalization and
// fingerprinting operate on.
//
// Extraction applies an ordered set of block-detection rules and returns on
// the first match. The rules are ordered most-specific first: dependency
// gating blocks, then mutation-testing summaries, then assertion failures,
// then a bounded truncated fallback. ExtractCore is pure and never fails;
// empty input yields empty output.
package extract

import (
	"regexp"
	"strings"
)

const (
	// maxBlockLines bounds the dependency/mutation block window: the
	// matching line plus up to this many following non-blank lines.
	maxBlockLines = 29

	// assertionContextBefore / assertionContextAfter bound the assertion
	// failure window.
	assertionContextBefore = 1
	assertionContextAfter  = 5

	// fallbackLines is how many non-blank lines the fallback keeps.
	fallbackLines = 8

	// fallbackLineLen truncates each fallback line.
	fallbackLineLen = 200
)

var (
	dependencyRegex = regexp.MustCompile(`(?i)not yet satisfied|prerequisites? not met|dependency .* failed|depends on .* which has not`)
	mutationRegex   = regexp.MustCompile(`(?i)mutation (testing|score|coverage)|mutations? (survived|killed)|pitest`)
	assertionRegex  = regexp.MustCompile(`expected:\s*<.*>\s*but was:\s*<.*>|AssertionFailedError|ComparisonFailure|AssertionError`)
)

// ExtractCore reduces one raw record's output text to its core excerpt.
func ExtractCore(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")

	if core, ok := matchBlock(lines, dependencyRegex); ok {
		return core
	}
	if core, ok := matchBlock(lines, mutationRegex); ok {
		return core
	}
	if core, ok := matchAssertion(lines); ok {
		return core
	}
	return fallback(lines)
}

// matchBlock finds the first line matching re and returns it plus up to
// maxBlockLines following lines, stopping at the first blank line.
func matchBlock(lines []string, re *regexp.Regexp) (string, bool) {
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		block := []string{strings.TrimRight(line, " \t\r")}
		for j := i + 1; j < len(lines) && len(block) <= maxBlockLines; j++ {
			next := strings.TrimRight(lines[j], " \t\r")
			if strings.TrimSpace(next) == "" {
				break
			}
			block = append(block, next)
		}
		return strings.Join(block, "\n"), true
	}
	return "", false
}

// matchAssertion returns the assertion line with one line of leading
// context and up to assertionContextAfter following lines.
func matchAssertion(lines []string) (string, bool) {
	for i, line := range lines {
		if !assertionRegex.MatchString(line) {
			continue
		}
		start := i - assertionContextBefore
		if start < 0 {
			start = 0
		}
		end := i + assertionContextAfter + 1
		if end > len(lines) {
			end = len(lines)
		}
		block := make([]string, 0, end-start)
		for _, l := range lines[start:end] {
			block = append(block, strings.TrimRight(l, " \t\r"))
		}
		return strings.TrimSpace(strings.Join(block, "\n")), true
	}
	return "", false
}

// fallback returns the first fallbackLines non-blank lines, each truncated
// to fallbackLineLen characters.
func fallback(lines []string) string {
	kept := make([]string, 0, fallbackLines)
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if len(trimmed) > fallbackLineLen {
			trimmed = trimmed[:fallbackLineLen]
		}
		kept = append(kept, trimmed)
		if len(kept) == fallbackLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}
