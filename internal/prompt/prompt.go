// Package prompt builds the provider messages for one (group, strategy)
// pair. Wording is intentionally plain; the processor only depends on the
// Generator boundary so prompt experiments never touch scheduling code.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pawtograder/triage/internal/provider"
	"github.com/pawtograder/triage/internal/types"
)

// Generator builds the message list for one error group under one
// strategy.
type Generator interface {
	Generate(group *types.ErrorGroup, strategy string) ([]provider.Message, error)
}

// Known strategy identifiers for the default generator.
const (
	StrategyExplain = "explain"
	StrategyHint    = "hint"
	StrategyMinimal = "minimal"
)

// TemplateGenerator is the default Generator: fixed templates per strategy
// ID, filled from the group's category, representative test, and retained
// examples.
type TemplateGenerator struct{}

var _ Generator = (*TemplateGenerator)(nil)

// Generate implements Generator. Unknown strategies are an error so a
// typo'd manifest fails loudly instead of silently prompting with the
// wrong template.
func (g *TemplateGenerator) Generate(group *types.ErrorGroup, strategy string) ([]provider.Message, error) {
	var b strings.Builder
	switch strategy {
	case StrategyExplain:
		b.WriteString("You are helping a student understand why their autograder run failed.\n")
		b.WriteString("Explain the error below in plain language and suggest what to look at first.\n\n")
	case StrategyHint:
		b.WriteString("Give a short hint (2-3 sentences) toward fixing the grader failure below.\n")
		b.WriteString("Do not reveal the full solution.\n\n")
	case StrategyMinimal:
		b.WriteString("Summarize this grader failure in one sentence.\n\n")
	default:
		return nil, fmt.Errorf("unknown prompt strategy: %q", strategy)
	}

	fmt.Fprintf(&b, "Error category: %s\n", group.CategoryName)
	fmt.Fprintf(&b, "Test: %s\n", group.RepresentativeTest())
	fmt.Fprintf(&b, "Normalized error:\n%s\n", group.CleanText)
	if len(group.Examples) > 0 {
		fmt.Fprintf(&b, "\nExample output:\n%s\n", group.Examples[0])
	}

	return []provider.Message{{Role: provider.RoleUser, Content: b.String()}}, nil
}
