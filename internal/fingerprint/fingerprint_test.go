package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawtograder/triage/internal/category"
	"github.com/pawtograder/triage/internal/types"
)

func record(submission, test, output string) *types.RawRecord {
	return &types.RawRecord{
		SubmissionID: submission,
		TestName:     test,
		GraderOutput: output,
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	key := CanonicalKey("null_pointer", "testFoo", "some normalized text")
	fp := Fingerprint(key)

	require.Len(t, fp, 16)
	for i := 0; i < 20; i++ {
		assert.Equal(t, fp, Fingerprint(key))
	}
	assert.NotEqual(t, fp, Fingerprint(CanonicalKey("null_pointer", "testBar", "some normalized text")))
}

func TestGroupSamePathDifferentSubmissions(t *testing.T) {
	records := []*types.RawRecord{
		record("s1", "testFoo", "/home/runner/work/x/x/pawtograder/Foo.java:42: NullPointerException"),
		record("s2", "testFoo", "/home/runner/work/y/y/pawtograder/Foo.java:99: NullPointerException"),
	}

	groups := Group(records)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
	assert.Len(t, groups[0].SubmissionIDs, 2)
	assert.Equal(t, category.IDNullPointer, groups[0].CategoryID)
}

func TestGroupAssertionDiscriminant(t *testing.T) {
	// Numeric formatting differences must not split the group.
	records := []*types.RawRecord{
		record("s1", "testWithdraw", "expected:<2.0> but was:<2.5>"),
		record("s2", "testWithdraw", "expected:<2.00> but was:<2.50>"),
		// A different expected/actual pair is a different problem.
		record("s3", "testWithdraw", "expected:<7> but was:<9>"),
	}

	groups := Group(records)
	require.Len(t, groups, 2)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 1, groups[1].Count)
}

func TestGroupCountConservation(t *testing.T) {
	var records []*types.RawRecord
	outputs := []string{
		"NullPointerException at Foo",
		"NullPointerException at Foo",
		"java.lang.OutOfMemoryError: Java heap space",
		"expected:<1> but was:<2>",
		"totally unclassifiable output",
	}
	for _, out := range outputs {
		records = append(records, record("", "test", out))
	}

	groups := Group(records)
	total := 0
	for _, g := range groups {
		total += g.Count
	}
	assert.Equal(t, len(records), total)
}

func TestGroupSkipsEmptyRecords(t *testing.T) {
	records := []*types.RawRecord{
		record("s1", "testFoo", "NullPointerException"),
		record("s2", "testFoo", ""),
		record("s3", "testFoo", "   \n  "),
	}

	groups := Group(records)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
}

func TestGroupUnknownDiscriminantPlaceholder(t *testing.T) {
	groups := Group([]*types.RawRecord{record("s1", "", "NullPointerException")})
	require.Len(t, groups, 1)
	assert.Equal(t, types.UnknownTest, groups[0].RepresentativeTest())
	assert.Contains(t, groups[0].CanonicalKey, types.UnknownTest)
}

func TestGroupExamplesCapped(t *testing.T) {
	var records []*types.RawRecord
	for i := 0; i < 5; i++ {
		records = append(records, record("s", "testFoo", "NullPointerException at Foo"))
	}

	groups := Group(records)
	require.Len(t, groups, 1)
	assert.LessOrEqual(t, len(groups[0].Examples), types.MaxExamples)
}

func TestGroupSortedByCount(t *testing.T) {
	records := []*types.RawRecord{
		record("a", "t1", "expected:<1> but was:<2>"),
		record("b", "t2", "NullPointerException at Bar"),
		record("c", "t2", "NullPointerException at Bar"),
		record("d", "t2", "NullPointerException at Bar"),
	}

	groups := Group(records)
	require.Len(t, groups, 2)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, 1, groups[1].Count)
}

func TestModeMapTieBreak(t *testing.T) {
	m := types.NewModeMap()
	m.Add("second")
	m.Add("first")
	m.Add("first")
	m.Add("second")

	// Equal counts: first-encountered value wins.
	mode, ok := m.Mode()
	require.True(t, ok)
	assert.Equal(t, "second", mode)
}

func TestDiscriminant(t *testing.T) {
	assert.Equal(t, "expected:<2> but was:<2.5>",
		Discriminant(category.IDAssertionMismatch, "expected:<2.0> but was:<2.5>", "testFoo"))

	// Assertion category without a parseable snippet falls back to test name.
	assert.Equal(t, "testFoo",
		Discriminant(category.IDAssertionMismatch, "AssertionFailedError only", "testFoo"))

	assert.Equal(t, "testFoo", Discriminant(category.IDNullPointer, "anything", "testFoo"))
	assert.Equal(t, types.UnknownTest, Discriminant(category.IDNullPointer, "anything", "  "))
}
