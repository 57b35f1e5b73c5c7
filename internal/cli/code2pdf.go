package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/waleking/code2pdf/internal/config"
	"github.com/waleking/code2pdf/internal/filter"
	"github.com/waleking/code2pdf/internal/logging"
	"github.com/waleking/code2pdf/internal/pdf"
	"github.com/waleking/code2pdf/internal/sink"
	"github.com/waleking/code2pdf/internal/source"
)

const (
	appCode2Pdf      = "code2pdf"
	defaultMergedPDF = "merged.pdf"
)

// NewCode2PdfCommand builds the code2pdf root command.
func NewCode2PdfCommand(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	var cfgFile string

	cmd := newCommand(
		"code2pdf (-s <file> | -a <directory>)",
		"Render source files to syntax-highlighted PDF",
		`code2pdf renders a single file (-s) to <name>.pdf in the current directory,
or every file of a tree (-a) to one PDF per file and merges them, in path
order, into <directory>/merged.pdf. Merging needs Ghostscript (gs) on PATH.`,
	)
	cmd.Args = func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}

	f := cmd.Flags()
	f.StringP("single", "s", "", "Convert one file")
	f.StringP("all", "a", "", "Convert every file under a directory and merge the results")
	f.StringP("output", "o", "", "Output PDF (default <name>.pdf for -s, <directory>/merged.pdf for -a)")
	f.String("style", pdf.DefaultStyle, "Highlighting style")
	f.String("font", "", "TrueType font to embed for full Unicode coverage")
	f.Bool("dev", false, "Development mode: keep per-file PDFs and log with caller information")
	addFilterFlags(cmd, &cfgFile)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		single, _ := cmd.Flags().GetString("single")
		all, _ := cmd.Flags().GetString("all")
		if (single == "") == (all == "") {
			return usageErrorf("specify exactly one of -s/--single or -a/--all")
		}

		s, err := config.Load(viper.New(), cmd.Flags(), appCode2Pdf, cfgFile)
		if err != nil {
			return err
		}
		logger := logging.New(cmd.ErrOrStderr(), s.Verbose, s.Dev, appCode2Pdf)
		defer logging.Sync(logger)

		renderer, err := deps.NewRenderer(pdf.RendererOptions{Style: s.Style, FontFile: s.Font, Logger: logger})
		if err != nil {
			return err
		}
		if single != "" {
			return runSingle(cmd.Context(), cmd.OutOrStdout(), single, s, renderer, logger)
		}
		return runAll(cmd, all, s, renderer, deps, logger)
	}
	return cmd
}

// singleOutput is "<name>.pdf" in the working directory, where name is the
// file name without its extension.
func singleOutput(file string) string {
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = base
	}
	return name + ".pdf"
}

func runSingle(ctx context.Context, out io.Writer, file string, s config.Settings, r pdf.Renderer, logger *zap.Logger) error {
	info, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file %s not found", file)
		}
		return err
	}
	if info.IsDir() {
		return usageErrorf("%s is a directory, use -a/--all", file)
	}

	langs, err := loadLanguages(s)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	d := filter.Decode(content)
	if d.Binary {
		return fmt.Errorf("%s looks like a binary file", file)
	}
	if d.Fallback {
		logger.Debug("Decoded with fallback encoding", zap.String("path", file))
	}

	output := s.Output
	if output == "" {
		output = singleOutput(file)
	}
	src := pdf.Source{
		Path:    filepath.ToSlash(file),
		Content: d.Text,
		Tag:     langs.Tag(filepath.Base(file)),
	}
	logger.Debug("Rendering", zap.String("path", src.Path), zap.String("tag", src.Tag))
	if err := pdf.RenderFile(ctx, r, src, output); err != nil {
		return fmt.Errorf("error creating PDF: %w", err)
	}
	fmt.Fprintf(out, "PDF created at %s\n", output)
	return nil
}

func runAll(cmd *cobra.Command, arg string, s config.Settings, r pdf.Renderer, deps Deps, logger *zap.Logger) error {
	if err := deps.CheckDependencies(pdf.GhostscriptBinary); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var progress io.Writer
	if s.Verbose {
		progress = cmd.ErrOrStderr()
	}
	src, err := source.Resolve(ctx, arg, progress, logger)
	if err != nil {
		return err
	}
	defer src.Cleanup()

	output := s.Output
	if output == "" {
		output = filepath.Join(src.Dir, defaultMergedPDF)
		if src.Remote != "" {
			// The clone is removed on exit.
			output = defaultMergedPDF
		}
	}
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	if s.Verbose {
		printConfiguration(out, s, arg, output)
	}

	res, err := collect(ctx, s, src.Dir, []string{outAbs}, logger)
	if err != nil {
		return err
	}

	partDir, err := os.MkdirTemp("", "code2pdf-parts-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	if s.Dev {
		logger.Info("Keeping per-file PDFs", zap.String("dir", partDir))
	} else {
		defer os.RemoveAll(partDir)
	}

	parts, err := pdf.RenderParts(ctx, r, res.Files, partDir, s.Workers, logger)
	if err != nil {
		return err
	}
	merged := filepath.Join(partDir, defaultMergedPDF)
	if err := deps.Merger.Merge(ctx, parts, merged); err != nil {
		return fmt.Errorf("failed to merge PDFs: %w", err)
	}
	if err := sink.CopyAtomic(merged, output, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Fprintf(out, "PDF created at %s\n", output)
	if s.Verbose {
		printSummary(out, res)
	}
	return nil
}
