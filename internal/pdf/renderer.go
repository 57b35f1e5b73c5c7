// Package pdf renders source files to syntax-highlighted PDF pages and merges
// the per-file documents into one.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	pageMargin     = 20 // mm
	headerHeight   = 8
	lineHeight     = 4.2
	fontSize       = 9
	headerFontSize = 10
	tabWidth       = 4
	// DefaultStyle is the chroma style used when none is configured.
	DefaultStyle = "github"

	embeddedFamily = "code"
	coreFamily     = "Courier"
)

// ErrUnknownStyle is returned for a chroma style name that is not registered.
var ErrUnknownStyle = errors.New("unknown style")

// Source is one file to render.
type Source struct {
	// Path is shown in the page header.
	Path    string
	Content string
	// Tag is the language tag; empty lets the lexer be guessed.
	Tag string
}

// Renderer writes one PDF document for a source file.
type Renderer interface {
	Render(ctx context.Context, src Source, w io.Writer) error
}

// RendererOptions configures FPDFRenderer.
type RendererOptions struct {
	Style string
	// FontFile is a TrueType font embedded for full Unicode coverage. When
	// empty the core Courier font is used and text is translated to cp1252.
	FontFile string
	Logger   *zap.Logger
}

// FPDFRenderer renders A4 pages with gofpdf, coloring tokens with chroma.
type FPDFRenderer struct {
	style    *chroma.Style
	fontFile string
	font     []byte
	logger   *zap.Logger
}

// NewFPDFRenderer validates opts and returns a renderer.
func NewFPDFRenderer(opts RendererOptions) (*FPDFRenderer, error) {
	name := opts.Style
	if name == "" {
		name = DefaultStyle
	}
	style, ok := styles.Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownStyle, name, strings.Join(Styles(), ", "))
	}
	var font []byte
	if opts.FontFile != "" {
		var err error
		if font, err = os.ReadFile(opts.FontFile); err != nil {
			return nil, fmt.Errorf("font file: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FPDFRenderer{style: style, fontFile: opts.FontFile, font: font, logger: logger}, nil
}

// Render lays out src with a header carrying the display path, a "Page N of
// M" footer and numbered lines.
func (r *FPDFRenderer) Render(ctx context.Context, src Source, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AliasNbPages("")

	family, tr := r.setupFont(doc)
	doc.SetTitle(filepath.Base(src.Path), true)
	doc.SetCreator("code2pdf", true)

	doc.SetHeaderFunc(func() {
		doc.SetY(pageMargin / 2)
		doc.SetFont(family, "", headerFontSize)
		doc.SetTextColor(102, 102, 102)
		doc.CellFormat(0, headerHeight, tr(src.Path), "", 1, "C", false, 0, "")
		doc.SetY(pageMargin)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-pageMargin + 4)
		doc.SetFont(family, "", headerFontSize)
		doc.SetTextColor(102, 102, 102)
		doc.CellFormat(0, headerHeight, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "R", false, 0, "")
	})

	doc.SetFont(family, "", fontSize)
	doc.AddPage()

	if err := r.writeCode(ctx, doc, family, tr, src); err != nil {
		return err
	}
	if err := doc.Error(); err != nil {
		return fmt.Errorf("layout %s: %w", src.Path, err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write %s: %w", src.Path, err)
	}
	return nil
}

// setupFont registers the embedded font when configured. The returned
// translator converts UTF-8 into what the selected font can encode.
func (r *FPDFRenderer) setupFont(doc *gofpdf.Fpdf) (string, func(string) string) {
	if r.font != nil {
		for _, style := range []string{"", "B", "I", "BI"} {
			doc.AddUTF8FontFromBytes(embeddedFamily, style, r.font)
		}
		if doc.Err() {
			r.logger.Warn("Failed to load font, using Courier", zap.String("font", r.fontFile), zap.Error(doc.Error()))
			doc.ClearError()
		} else {
			return embeddedFamily, func(s string) string { return s }
		}
	}
	return coreFamily, doc.UnicodeTranslatorFromDescriptor("")
}

func (r *FPDFRenderer) writeCode(ctx context.Context, doc *gofpdf.Fpdf, family string, tr func(string) string, src Source) error {
	lexer := pickLexer(src)
	it, err := lexer.Tokenise(nil, src.Content)
	if err != nil {
		r.logger.Debug("Highlighting failed, writing plain text", zap.String("path", src.Path), zap.Error(err))
		it, _ = lexers.Fallback.Tokenise(nil, src.Content)
	}

	lines := chroma.SplitTokensIntoLines(it.Tokens())
	width := len(strconv.Itoa(len(lines)))
	base := r.style.Get(chroma.Text).Colour

	for i, line := range lines {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		doc.SetFont(family, "", fontSize)
		doc.SetTextColor(153, 153, 153)
		doc.Write(lineHeight, fmt.Sprintf("%*d  ", width, i+1))

		for _, tok := range line {
			value := strings.TrimRight(tok.Value, "\n")
			if value == "" {
				continue
			}
			entry := r.style.Get(tok.Type)
			fontStyle := ""
			if entry.Bold == chroma.Yes {
				fontStyle += "B"
			}
			if entry.Italic == chroma.Yes {
				fontStyle += "I"
			}
			doc.SetFontStyle(fontStyle)
			setColour(doc, entry.Colour, base)
			doc.Write(lineHeight, tr(strings.ReplaceAll(value, "\t", strings.Repeat(" ", tabWidth))))
		}
		doc.Ln(lineHeight)
	}
	return nil
}

func setColour(doc *gofpdf.Fpdf, c, base chroma.Colour) {
	switch {
	case c.IsSet():
		doc.SetTextColor(int(c.Red()), int(c.Green()), int(c.Blue()))
	case base.IsSet():
		doc.SetTextColor(int(base.Red()), int(base.Green()), int(base.Blue()))
	default:
		doc.SetTextColor(0, 0, 0)
	}
}

// pickLexer prefers the language tag, then the file name, then content
// analysis.
func pickLexer(src Source) chroma.Lexer {
	var lexer chroma.Lexer
	if src.Tag != "" {
		lexer = lexers.Get(src.Tag)
	}
	if lexer == nil {
		lexer = lexers.Match(filepath.Base(src.Path))
	}
	if lexer == nil {
		lexer = lexers.Analyse(src.Content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Styles lists the registered chroma style names.
func Styles() []string {
	return styles.Names()
}
