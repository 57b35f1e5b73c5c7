package aggregate

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

const tocHeading = "Table of Contents"

// linkText escapes what would end a markdown link label early.
var linkText = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// Document is the combined markdown rendering of a set of files.
type Document struct {
	// Files must already be in output order; Collect returns them that way.
	Files []File
	TOC   bool
}

// WriteTo writes the document: an optional table of contents followed by one
// "## <path>" section per file holding its content in a fenced block.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	if d.TOC {
		anchors := newAnchorSet()
		anchors.add(tocHeading)
		cw.printf("# %s\n\n", tocHeading)
		for _, f := range d.Files {
			cw.printf("- [%s](#%s)\n", linkText.Replace(f.Rel), anchors.add(f.Rel))
		}
		cw.printf("\n")
	}

	for _, f := range d.Files {
		fence := fenceFor(f.Content)
		cw.printf("## %s\n\n", f.Rel)
		cw.printf("%s%s\n", fence, f.Tag)
		cw.printf("%s", f.Content)
		if f.Content != "" && !strings.HasSuffix(f.Content, "\n") {
			cw.printf("\n")
		}
		cw.printf("%s\n\n", fence)
	}
	return cw.n, cw.err
}

// String renders the document in memory.
func (d Document) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

// fenceFor returns a backtick fence longer than any backtick run inside
// content, so embedded markdown cannot close the block early.
func fenceFor(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// anchorSet produces GitHub style heading anchors, numbering duplicates.
type anchorSet map[string]int

func newAnchorSet() anchorSet { return make(anchorSet) }

func (s anchorSet) add(heading string) string {
	slug := Slug(heading)
	n, seen := s[slug]
	s[slug] = n + 1
	if !seen {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, n)
}

// Slug lower-cases a heading, drops punctuation and turns spaces into
// hyphens, the way GitHub derives heading anchors.
func Slug(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	n, err := fmt.Fprintf(c.w, format, args...)
	c.n += int64(n)
	c.err = err
}
