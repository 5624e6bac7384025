package processor

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/pawtograder/triage/internal/types"
)

// Manifest is the optional YAML run description: which combinations to
// run and any skip-rule extensions beyond the built-in defaults.
type Manifest struct {
	Combinations []types.Combination `yaml:"combinations"`

	// SkipCategories are extra category IDs to skip outright.
	SkipCategories []string `yaml:"skip_categories,omitempty"`

	// GatingPatterns are extra regular expressions matched against the
	// normalized text; a match skips the group.
	GatingPatterns []string `yaml:"gating_patterns,omitempty"`
}

// LoadManifest reads and validates a run manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(m.Combinations) == 0 {
		return nil, fmt.Errorf("manifest defines no combinations")
	}
	for i, c := range m.Combinations {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("manifest combination %d: %w", i, err)
		}
	}
	for _, p := range m.GatingPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid gating pattern %q: %w", p, err)
		}
	}
	return &m, nil
}

// compiledPatterns returns the manifest's extra gating patterns compiled.
// LoadManifest already validated them.
func (m *Manifest) compiledPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(m.GatingPatterns))
	for _, p := range m.GatingPatterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
