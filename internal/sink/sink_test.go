package sink

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "combined.txt")

	err := WriteAtomic(out, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assertNoTemp(t, filepath.Dir(out))
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "combined.txt")
	boom := errors.New("boom")

	err := WriteAtomic(out, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, out)
	assertNoTemp(t, dir)
}

func TestWriteAtomicFailureKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "combined.txt")
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0o644))

	err := WriteAtomic(out, 0o644, func(io.Writer) error { return errors.New("interrupted") })
	require.Error(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestCopyAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.3"), 0o644))

	dst := filepath.Join(dir, "out", "merged.pdf")
	require.NoError(t, CopyAtomic(src, dst, 0o644))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	assert.Error(t, CopyAtomic(filepath.Join(dir, "missing.pdf"), dst, 0o644))
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
