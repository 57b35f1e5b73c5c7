package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waleking/code2pdf/internal/pdf"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, src pdf.Source, w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-fake "+src.Path+" ["+src.Tag+"]\n")
	return err
}

// concatMerger joins the parts so tests can see what was merged, in order.
type concatMerger struct {
	parts []string
}

func (m *concatMerger) Merge(_ context.Context, parts []string, out string) error {
	m.parts = parts
	var buf bytes.Buffer
	for _, p := range parts {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return os.WriteFile(out, buf.Bytes(), 0o644)
}

func fakePDFDeps(m *concatMerger) Deps {
	return Deps{
		NewRenderer:       func(pdf.RendererOptions) (pdf.Renderer, error) { return fakeRenderer{}, nil },
		Merger:            m,
		CheckDependencies: func(...string) error { return nil },
	}
}

func TestCode2PdfHelp(t *testing.T) {
	r := execute(t, NewCode2PdfCommand(Deps{}), "--help")
	assert.Equal(t, ExitOK, r.code)
	assert.Contains(t, r.stdout, "Usage:")
	assert.Contains(t, r.stdout, "-s, --single")
	assert.Contains(t, r.stdout, "-a, --all")
	assert.Contains(t, r.stdout, "--dev")
}

func TestCode2PdfModeSelection(t *testing.T) {
	for name, args := range map[string][]string{
		"none":    nil,
		"both":    {"-s", "a.py", "-a", "."},
		"invalid": {"--invalid-option"},
		"args":    {"stray"},
	} {
		t.Run(name, func(t *testing.T) {
			r := execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), args...)
			assert.Equal(t, ExitUsage, r.code)
			assert.Contains(t, r.stdout, "Usage:")
			assert.Contains(t, r.stderr, "Error:")
		})
	}
}

func TestCode2PdfSingle(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"test.py": "print('Hello, PDF!')"})
	t.Chdir(dir)

	r := execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-s", "test.py")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "PDF created at test.pdf")
	assert.Equal(t, "%PDF-fake test.py [python]\n", readFile(t, filepath.Join(dir, "test.pdf")))
}

func TestCode2PdfSingleRealRenderer(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	output := filepath.Join(dir, "out.pdf")

	deps := Deps{CheckDependencies: func(...string) error { return nil }}
	r := execute(t, NewCode2PdfCommand(deps), "-s", filepath.Join(dir, "main.go"), "-o", output, "--style", "monokai")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(readFile(t, output), "%PDF-"))
}

func TestCode2PdfSingleErrors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"blob.bin": "\x00\x01\x02\x03"})

	r := execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-s", filepath.Join(dir, "nonexistent.py"))
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "not found")

	r = execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-s", filepath.Join(dir, "blob.bin"))
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "binary")

	r = execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-s", dir)
	assert.Equal(t, ExitUsage, r.code)
}

func TestCode2PdfUnknownStyle(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.py": "a = 1\n"})
	r := execute(t, NewCode2PdfCommand(Deps{}), "-s", filepath.Join(dir, "a.py"), "--style", "no-such-style")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "unknown style")
}

func TestCode2PdfAll(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"zebra.py":            "z = 1\n",
		"apple.py":            "a = 1\n",
		"cat/dog.js":          "let d = 3;\n",
		"test.bin":            "\x00\x01\x02\x03",
		"node_modules/lib.js": "console.log('lib');",
		".git/config":         "[core]",
	})
	m := &concatMerger{}

	r := execute(t, NewCode2PdfCommand(fakePDFDeps(m)), "-a", root)
	require.Equal(t, ExitOK, r.code, r.stderr)

	merged := filepath.Join(root, "merged.pdf")
	assert.Contains(t, r.stdout, "PDF created at "+merged)
	assert.Equal(t,
		"%PDF-fake apple.py [python]\n%PDF-fake cat/dog.js [javascript]\n%PDF-fake zebra.py [python]\n",
		readFile(t, merged))
	require.Len(t, m.parts, 3)
	assert.NoDirExists(t, filepath.Dir(m.parts[0]), "parts are removed outside dev mode")
}

func TestCode2PdfAllDevKeepsParts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "a = 1\n"})
	output := filepath.Join(t.TempDir(), "book.pdf")
	m := &concatMerger{}

	r := execute(t, NewCode2PdfCommand(fakePDFDeps(m)), "--dev", "-a", root, "-o", output)
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.FileExists(t, output)
	assert.Contains(t, r.stderr, "Keeping per-file PDFs")
	require.Len(t, m.parts, 1)
	assert.FileExists(t, m.parts[0])
	t.Cleanup(func() { os.RemoveAll(filepath.Dir(m.parts[0])) })
}

func TestCode2PdfAllMissingDependency(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "a = 1\n"})
	deps := fakePDFDeps(&concatMerger{})
	deps.CheckDependencies = func(names ...string) error {
		return &pdf.DependencyMissingError{Missing: names}
	}

	r := execute(t, NewCode2PdfCommand(deps), "-a", root)
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "Error: Missing required dependencies: gs")
	assert.NoFileExists(t, filepath.Join(root, "merged.pdf"))
}

func TestCode2PdfAllErrors(t *testing.T) {
	r := execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-a", filepath.Join(t.TempDir(), "nonexistent"))
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "does not exist")

	r = execute(t, NewCode2PdfCommand(fakePDFDeps(&concatMerger{})), "-a", t.TempDir())
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "no files were processed")
}
