package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePaths(t *testing.T) {
	a := Normalize("/home/runner/work/x/x/pawtograder/Foo.java:42: NullPointerException")
	b := Normalize("/home/runner/work/y/y/pawtograder/Foo.java:99: NullPointerException")

	require.Equal(t, a, b)
	assert.Contains(t, a, "REPO/pawtograder/Foo.java:N")
	assert.NotContains(t, a, "runner/work")
	assert.NotContains(t, a, "42")
}

func TestNormalizeRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "assertion pair",
			in:   "expected:<2.5> but was:<3.0>",
			want: "expected:<EXPECTED> but was:<ACTUAL>",
		},
		{
			name: "uuid",
			in:   "submission 550e8400-e29b-41d4-a716-446655440000 failed",
			want: "submission UUID failed",
		},
		{
			name: "timestamp",
			in:   "at 2024-03-15T10:30:00Z the run aborted",
			want: "at TIMESTAMP the run aborted",
		},
		{
			name: "line number word form",
			in:   "error on line 128 of the file",
			want: "error on line N of the file",
		},
		{
			name: "percentage",
			in:   "coverage dropped to 85%",
			want: "coverage dropped to X%",
		},
		{
			name: "ratio",
			in:   "3/10 tests passed",
			want: "X/Y tests passed",
		},
		{
			name: "bare count",
			in:   "found 7 faults",
			want: "found X faults",
		},
		{
			name: "whitespace collapse",
			in:   "  a\t\tb \n c  ",
			want: "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "/home/runner/work/a/a/pawtograder/Bar.java:17: expected:<1.0> but was:<2> at 2024-01-02T03:04:05Z (attempt 3/5, 60%)"
	first := Normalize(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(in))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"expected:<2.0> but was:<2.5> at Foo.java:42",
		"/src/main/java/app/Main.java:10: 3 errors, 2 warnings (40%)",
		"run 550e8400-e29b-41d4-a716-446655440000 at 2024-03-15 10:30:00",
		"plain text with no volatility",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input: %s", in)
	}
}
