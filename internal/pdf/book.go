package pdf

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waleking/code2pdf/internal/aggregate"
	"github.com/waleking/code2pdf/internal/sink"
)

// RenderFile renders a single source into path, atomically.
func RenderFile(ctx context.Context, r Renderer, src Source, path string) error {
	return sink.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return r.Render(ctx, src, w)
	})
}

// RenderParts renders every file into dir as numbered parts and returns the
// part paths in the order of files. Rendering runs on up to workers
// goroutines; the first failure cancels the rest.
func RenderParts(ctx context.Context, r Renderer, files []aggregate.File, dir string, workers int, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	parts := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		part := filepath.Join(dir, fmt.Sprintf("%06d.pdf", i))
		parts[i] = part
		g.Go(func() error {
			logger.Debug("Rendering", zap.String("path", f.Rel), zap.String("part", part))
			src := Source{Path: f.Rel, Content: f.Content, Tag: f.Tag}
			if err := RenderFile(ctx, r, src, part); err != nil {
				return fmt.Errorf("render %s: %w", f.Rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}
