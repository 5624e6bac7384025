package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawtograder/triage/internal/types"
)

var testCombo = types.Combination{Model: "claude-3-5-haiku", Strategy: "explain"}

func entry(text string) types.ProcessingStateEntry {
	return types.ProcessingStateEntry{Response: text, ProcessedAt: time.Now().UTC()}
}

func TestOpenMissingStartsEmpty(t *testing.T) {
	s, err := Open(t.TempDir(), testCombo)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestPutAndReload(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, testCombo)
	require.NoError(t, err)
	require.NoError(t, s.Put("fp1", entry("answer one")))
	require.NoError(t, s.Put("fp2", entry("answer two")))

	// A fresh store sees everything the first one persisted.
	reloaded, err := Open(dir, testCombo)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	e, ok := reloaded.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "answer one", e.Response)
}

func TestEntriesAreTerminal(t *testing.T) {
	s, err := Open(t.TempDir(), testCombo)
	require.NoError(t, err)

	require.NoError(t, s.Put("fp1", entry("original")))
	require.NoError(t, s.Put("fp1", entry("overwrite attempt")))

	e, ok := s.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "original", e.Response)
	assert.Equal(t, 1, s.Len())
}

func TestCorruptDocumentTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, testCombo.Key()+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := Open(dir, testCombo)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSeparateDocumentsPerCombination(t *testing.T) {
	dir := t.TempDir()
	other := types.Combination{Model: "claude-3-5-haiku", Strategy: "hint"}

	s1, err := Open(dir, testCombo)
	require.NoError(t, err)
	require.NoError(t, s1.Put("fp1", entry("a")))

	s2, err := Open(dir, other)
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Len())
	assert.NotEqual(t, s1.Path(), s2.Path())
}

func TestConcurrentPutsLoseNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, testCombo)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := testFingerprint(i)
			assert.NoError(t, s.Put(fp, entry("r")))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())

	reloaded, err := Open(dir, testCombo)
	require.NoError(t, err)
	assert.Equal(t, n, reloaded.Len())
}

// testFingerprint builds a distinct key per worker index.
func testFingerprint(i int) string {
	return string(rune('a'+i%26)) + "fp" + string(rune('0'+i/26))
}
