// Package cli wires configuration, logging and the aggregation engine into
// the code2txt and code2pdf cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	units "github.com/docker/go-units"
	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waleking/code2pdf/internal/aggregate"
	"github.com/waleking/code2pdf/internal/config"
	"github.com/waleking/code2pdf/internal/language"
	"github.com/waleking/code2pdf/internal/pdf"
	"github.com/waleking/code2pdf/internal/tokens"
	"github.com/waleking/code2pdf/internal/walker"
)

// version is set via ldflags.
var version = "dev"

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// UsageError is a problem with how a command was invoked.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage),
		errors.Is(err, config.ErrInvalidSize),
		errors.Is(err, pdf.ErrDependencyMissing),
		errors.Is(err, pdf.ErrUnknownStyle):
		return ExitUsage
	default:
		return ExitError
	}
}

// Run executes cmd with args and returns the exit code. Errors are printed
// as "Error: <message>" on the command's error stream; invocation errors
// are followed by the usage text on its output stream.
func Run(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		var usage *UsageError
		if errors.As(err, &usage) {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
		}
	}
	return ExitCode(err)
}

// Deps are the collaborators a command talks to outside the process.
type Deps struct {
	NewCounter        func(opts tokens.Options, logger *zap.Logger) (tokens.Counter, error)
	WriteClipboard    func(text string) error
	NewRenderer       func(opts pdf.RendererOptions) (pdf.Renderer, error)
	Merger            pdf.Merger
	CheckDependencies func(executables ...string) error
}

// DefaultDeps uses tiktoken or a Hugging Face tokenizer, the system
// clipboard, gofpdf and Ghostscript.
func DefaultDeps() Deps {
	return Deps{
		NewCounter:     tokens.New,
		WriteClipboard: clipboard.WriteAll,
		NewRenderer: func(opts pdf.RendererOptions) (pdf.Renderer, error) {
			return pdf.NewFPDFRenderer(opts)
		},
		Merger:            pdf.GhostscriptMerger{},
		CheckDependencies: pdf.CheckDependencies,
	}
}

func (d Deps) withDefaults() Deps {
	def := DefaultDeps()
	if d.NewCounter == nil {
		d.NewCounter = def.NewCounter
	}
	if d.WriteClipboard == nil {
		d.WriteClipboard = def.WriteClipboard
	}
	if d.NewRenderer == nil {
		d.NewRenderer = def.NewRenderer
	}
	if d.Merger == nil {
		d.Merger = def.Merger
	}
	if d.CheckDependencies == nil {
		d.CheckDependencies = def.CheckDependencies
	}
	return d
}

// newCommand applies the settings both commands share.
func newCommand(use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	return cmd
}

// addFilterFlags registers the selection flags shared by both commands.
func addFilterFlags(cmd *cobra.Command, cfgFile *string) {
	f := cmd.Flags()
	f.StringSlice("include-types", nil, "Only include these file types (comma-separated, e.g. py,js)")
	f.StringSlice("ignore-types", nil, "Additional file types to ignore (comma-separated)")
	f.StringSlice("ignore-folders", nil, "Additional folder names to ignore (comma-separated)")
	f.String("max-file-size", "", "Skip files larger than this, e.g. 500K, 10M (default 10M, 0 for no limit)")
	f.Bool("gitignore", false, "Also skip paths matched by the root .gitignore")
	f.String("languages", "", "YAML file with extra language mappings")
	f.Int("workers", 0, "Number of parallel readers (0 for one per CPU)")
	f.Bool("verbose", false, "Print configuration and per-file progress")
	f.StringVar(cfgFile, "config", "", "Config file (default is $HOME/.config/<command>/config.toml)")
}

// collect runs the engine for one resolved root.
func collect(ctx context.Context, s config.Settings, dir string, skip []string, logger *zap.Logger) (*aggregate.Result, error) {
	langs, err := loadLanguages(s)
	if err != nil {
		return nil, err
	}

	var ignore gitignore.IgnoreMatcher
	if s.GitIgnore {
		if ignore, err = walker.LoadGitIgnore(dir); err != nil {
			return nil, err
		}
	}

	res, err := aggregate.Collect(ctx, dir, aggregate.Options{
		Filter:    s.Filter(),
		Languages: langs,
		Skip:      skip,
		Ignore:    ignore,
		Workers:   s.Workers,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Debug("Decoded with fallback encoding", zap.Error(w))
	}
	return res, nil
}

// loadLanguages returns the built-in table, extended by --languages.
func loadLanguages(s config.Settings) (*language.Table, error) {
	if s.Languages == "" {
		return language.Default, nil
	}
	return language.Load(s.Languages)
}

func printConfiguration(w io.Writer, s config.Settings, dir, output string) {
	maxSize := "unlimited"
	if s.MaxFileSizeBytes > 0 {
		maxSize = units.BytesSize(float64(s.MaxFileSizeBytes))
	}
	configFile := s.ConfigFile
	if configFile == "" {
		configFile = "(none)"
	}
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Directory:       %s\n", dir)
	fmt.Fprintf(w, "  Output:          %s\n", output)
	fmt.Fprintf(w, "  Include types:   %s\n", joinOr(s.IncludeTypes, "(all)"))
	fmt.Fprintf(w, "  Ignore types:    %s\n", joinOr(s.IgnoreTypes, "(none)"))
	fmt.Fprintf(w, "  Ignore folders:  %s\n", joinOr(s.IgnoreFolders, "(none)"))
	fmt.Fprintf(w, "  Max file size:   %s\n", maxSize)
	fmt.Fprintf(w, "  Config file:     %s\n", configFile)
}

func printSummary(w io.Writer, res *aggregate.Result) {
	fmt.Fprintf(w, "Files included: %d (%s), skipped: %d\n", len(res.Files), units.BytesSize(float64(res.Size())), res.Skipped)
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
