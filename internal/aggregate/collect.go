// Package aggregate turns a directory walk into the ordered list of files
// that make up one output document.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waleking/code2pdf/internal/filter"
	"github.com/waleking/code2pdf/internal/language"
	"github.com/waleking/code2pdf/internal/walker"
)

// ErrNoFilesProcessed is returned when nothing survives filtering.
var ErrNoFilesProcessed = errors.New("no files were processed")

// DecodeFallbackWarning records a file that was not valid UTF-8 and was read
// as ISO-8859-1. It never aborts a run.
type DecodeFallbackWarning struct {
	Path string
}

func (w *DecodeFallbackWarning) Error() string {
	return fmt.Sprintf("%s is not valid UTF-8, decoded as ISO-8859-1", w.Path)
}

// File is an included file with its decoded content.
type File struct {
	walker.Candidate
	Size     int64
	Content  string
	Tag      string
	Fallback bool
}

// Options configures Collect.
type Options struct {
	Filter    filter.Config
	Languages *language.Table
	// Skip lists absolute paths never to include, e.g. the output file.
	Skip    []string
	Ignore  gitignore.IgnoreMatcher
	Workers int
	Logger  *zap.Logger
}

// Result is the outcome of Collect.
type Result struct {
	// Files are sorted by relative path, byte-wise.
	Files    []File
	Warnings []error
	Skipped  int
}

// Size is the total size in bytes of the included files.
func (r *Result) Size() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Size
	}
	return n
}

// Collect walks root, filters candidates, reads the survivors and returns
// them in lexicographic order of their relative path. Problems with single
// files are logged and the file is skipped.
func Collect(ctx context.Context, root string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	seq, err := walker.Walk(root, walker.Options{
		ExcludeFolders: opts.Filter.ExcludeFolders,
		Skip:           opts.Skip,
		Ignore:         opts.Ignore,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var candidates []walker.Candidate
	for c := range seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(c.Abs)
		if err != nil {
			logger.Warn("Could not get file info", zap.String("path", c.Rel), zap.Error(err))
			res.Skipped++
			continue
		}
		if reason := opts.Filter.Check(c, info.Size()); reason != filter.Kept {
			logger.Debug("Skipping file", zap.String("path", c.Rel), zap.String("reason", string(reason)), zap.Int64("size", info.Size()))
			res.Skipped++
			continue
		}
		candidates = append(candidates, c)
	}

	// Sort before reading so the final order never depends on which reader
	// finishes first.
	slices.SortFunc(candidates, func(a, b walker.Candidate) int { return strings.Compare(a.Rel, b.Rel) })
	candidates = slices.CompactFunc(candidates, func(a, b walker.Candidate) bool { return a.Rel == b.Rel })

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	loaded := make([]*File, len(candidates))
	warnings := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded[i], warnings[i] = load(c, opts.Languages, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, f := range loaded {
		if warnings[i] != nil {
			res.Warnings = append(res.Warnings, warnings[i])
		}
		if f == nil {
			res.Skipped++
			continue
		}
		res.Files = append(res.Files, *f)
	}
	if len(res.Files) == 0 {
		return nil, ErrNoFilesProcessed
	}
	logger.Debug("Collected files", zap.Int("included", len(res.Files)), zap.Int("skipped", res.Skipped))
	return res, nil
}

// load reads one candidate. A nil file means it was skipped.
func load(c walker.Candidate, langs *language.Table, logger *zap.Logger) (*File, error) {
	logger.Debug("Processing", zap.String("path", c.Rel))
	content, err := os.ReadFile(c.Abs)
	if err != nil {
		logger.Warn("Could not read file", zap.String("path", c.Rel), zap.Error(err))
		return nil, nil
	}

	d := filter.Decode(content)
	if d.Binary {
		logger.Debug("Skipping file", zap.String("path", c.Rel), zap.String("reason", string(filter.BinaryContent)))
		return nil, nil
	}

	var warning error
	if d.Fallback {
		warning = &DecodeFallbackWarning{Path: c.Rel}
	}
	return &File{
		Candidate: c,
		Size:      int64(len(content)),
		Content:   d.Text,
		Tag:       langs.Tag(c.Rel),
		Fallback:  d.Fallback,
	}, warning
}
