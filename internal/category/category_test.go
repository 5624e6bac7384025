package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		wantID string
	}{
		{"dependency gating", "assignment prerequisites not met", IDDependencyGating},
		{"mutation", "4 mutations survived in BankAccount", IDMutationSurvived},
		{"assertion normalized", "expected:<EXPECTED> but was:<ACTUAL>", IDAssertionMismatch},
		{"assertion raw", "org.opentest4j.AssertionFailedError: boom", IDAssertionMismatch},
		{"null safety before null pointer", "parameter owner is marked non-null but is null", IDNullSafetyContract},
		{"null pointer", "java.lang.NullPointerException: oops", IDNullPointer},
		{"compilation", "error: cannot find symbol in Foo.java", IDCompilation},
		{"timeout", "test timed out after X seconds", IDTimeout},
		{"oom", "java.lang.OutOfMemoryError: Java heap space", IDOutOfMemory},
		{"index", "java.lang.ArrayIndexOutOfBoundsException: X", IDIndexOutOfBounds},
		{"generic catch-all", "com.example.WeirdCustomException: odd", IDGenericException},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := Categorize(tt.text)
			require.NotNil(t, cat)
			assert.Equal(t, tt.wantID, cat.ID)
		})
	}
}

func TestCategorizeNoMatch(t *testing.T) {
	assert.Nil(t, Categorize("everything passed, nothing to see"))
	assert.Nil(t, Categorize(""))
}

// The null-safety subtype must stay ahead of the null-pointer catch-all:
// its messages frequently mention "null" in ways the broad patterns also
// match, and reordering would silently reclassify them.
func TestCatalogOrderSpecificBeforeGeneral(t *testing.T) {
	indexOf := func(id string) int {
		for i, c := range All() {
			if c.ID == id {
				return i
			}
		}
		t.Fatalf("category %s not in catalog", id)
		return -1
	}

	assert.Less(t, indexOf(IDNullSafetyContract), indexOf(IDNullPointer))
	assert.Equal(t, IDGenericException, All()[len(All())-1].ID, "catch-all must stay last")
}

func TestLookup(t *testing.T) {
	c := Lookup(IDAssertionMismatch)
	require.NotNil(t, c)
	assert.Equal(t, "Assertion Mismatch", c.Name)

	assert.Equal(t, Unknown, Lookup(IDUnknown))
	assert.Nil(t, Lookup("no_such_category"))
}

func TestIsAssertion(t *testing.T) {
	assert.True(t, IsAssertion(IDAssertionMismatch))
	assert.False(t, IsAssertion(IDNullPointer))
}
