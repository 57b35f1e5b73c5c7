package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waleking/code2pdf/internal/aggregate"
	"github.com/waleking/code2pdf/internal/walker"
)

func TestFPDFRendererProducesPDF(t *testing.T) {
	r, err := NewFPDFRenderer(RendererOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(context.Background(), Source{
		Path:    "src/main.py",
		Content: "def main():\n\tprint('Hello, PDF!')\n",
		Tag:     "python",
	}, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestFPDFRendererHandlesEdgeContent(t *testing.T) {
	r, err := NewFPDFRenderer(RendererOptions{Style: "monokai"})
	require.NoError(t, err)

	long := strings.Repeat("x = 1 # a comment that keeps going\n", 400)
	for name, src := range map[string]Source{
		"empty":   {Path: "empty.py", Tag: "python"},
		"unicode": {Path: "unicode.txt", Content: "Hello 世界 café\n"},
		"untag":   {Path: "notes", Content: "plain text without a tag"},
		"long":    {Path: "long.py", Content: long, Tag: "python"},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Render(context.Background(), src, &buf))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestFPDFRendererCanceled(t *testing.T) {
	r, err := NewFPDFRenderer(RendererOptions{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.Render(ctx, Source{Path: "a.go", Content: "package a\n"}, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFPDFRendererValidates(t *testing.T) {
	_, err := NewFPDFRenderer(RendererOptions{Style: "no-such-style"})
	assert.ErrorIs(t, err, ErrUnknownStyle)

	_, err = NewFPDFRenderer(RendererOptions{FontFile: filepath.Join(t.TempDir(), "missing.ttf")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPickLexer(t *testing.T) {
	assert.Equal(t, "Python", pickLexer(Source{Path: "x", Tag: "python"}).Config().Name)
	assert.Equal(t, "Go", pickLexer(Source{Path: "main.go"}).Config().Name)
	assert.NotNil(t, pickLexer(Source{Path: "unknown.zzz", Content: "???"}))
}

func TestGhostscriptMergerArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	m := GhostscriptMerger{Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}}

	require.NoError(t, m.Merge(context.Background(), []string{"a.pdf", "b.pdf"}, "out/merged.pdf"))
	assert.Equal(t, "gs", gotName)
	assert.Equal(t, []string{
		"-dBATCH", "-dNOPAUSE", "-q", "-sDEVICE=pdfwrite",
		"-sOutputFile=out/merged.pdf", "a.pdf", "b.pdf",
	}, gotArgs)
}

func TestGhostscriptMergerErrors(t *testing.T) {
	m := GhostscriptMerger{Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("  Unrecoverable error\n"), errors.New("exit status 1")
	}}
	err := m.Merge(context.Background(), []string{"a.pdf"}, "out.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unrecoverable error")

	assert.ErrorIs(t, m.Merge(context.Background(), nil, "out.pdf"), ErrNothingToMerge)
}

func TestCheckDependencies(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := CheckDependencies("gs", "definitely-not-installed")
	var missing *DependencyMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"gs", "definitely-not-installed"}, missing.Missing)
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.Equal(t, "Missing required dependencies: gs, definitely-not-installed", err.Error())

	assert.NoError(t, CheckDependencies())
}

type recordingRenderer struct {
	mu   sync.Mutex
	seen []string
	fail string
}

func (r *recordingRenderer) Render(_ context.Context, src Source, w io.Writer) error {
	r.mu.Lock()
	r.seen = append(r.seen, src.Path)
	r.mu.Unlock()
	if src.Path == r.fail {
		return errors.New("boom")
	}
	_, err := io.WriteString(w, "%PDF-fake "+src.Path)
	return err
}

func files(rels ...string) []aggregate.File {
	out := make([]aggregate.File, len(rels))
	for i, rel := range rels {
		out[i] = aggregate.File{Candidate: walker.Candidate{Rel: rel}, Content: rel}
	}
	return out
}

func TestRenderPartsKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	r := &recordingRenderer{}

	parts, err := RenderParts(context.Background(), r, files("apple.py", "banana.py", "cat/dog.py"), dir, 2, nil)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	for i, want := range []string{"apple.py", "banana.py", "cat/dog.py"} {
		data, err := os.ReadFile(parts[i])
		require.NoError(t, err)
		assert.Equal(t, "%PDF-fake "+want, string(data))
	}
	assert.ElementsMatch(t, []string{"apple.py", "banana.py", "cat/dog.py"}, r.seen)
}

func TestRenderPartsFailure(t *testing.T) {
	dir := t.TempDir()
	r := &recordingRenderer{fail: "b.py"}

	_, err := RenderParts(context.Background(), r, files("a.py", "b.py"), dir, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render b.py")
	assert.NoFileExists(t, filepath.Join(dir, "000001.pdf"))
}
