package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/waleking/code2pdf/internal/aggregate"
	"github.com/waleking/code2pdf/internal/config"
	"github.com/waleking/code2pdf/internal/logging"
	"github.com/waleking/code2pdf/internal/sink"
	"github.com/waleking/code2pdf/internal/source"
	"github.com/waleking/code2pdf/internal/tokens"
)

const (
	appCode2Txt      = "code2txt"
	defaultTxtOutput = "combined.txt"
)

// NewCode2TxtCommand builds the code2txt root command.
func NewCode2TxtCommand(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	var cfgFile string

	cmd := newCommand(
		"code2txt [directory]",
		"Combine a source tree into one markdown document",
		`code2txt walks a directory (default: the current one), keeps the files that
pass the type, folder and size filters, and writes them in path order to a
single document with a table of contents and one fenced code block per file.

The directory may also be a Git URL, which is cloned to a temporary
directory first.`,
	)
	cmd.Args = func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}

	f := cmd.Flags()
	f.StringP("output", "o", defaultTxtOutput, "Output file")
	f.Bool("no-toc", false, "Do not write a table of contents")
	f.Bool("tree", false, "Print the directory tree of the included files")
	f.Bool("clipboard", false, "Also copy the document to the clipboard")
	f.Bool("count-tokens", false, "Print an estimate of the document's token count")
	f.String("tokenizer", tokens.BackendTiktoken, "Tokenizer for --count-tokens: tiktoken or huggingface")
	f.String("token-model", "", "Tokenizer model (default gpt-4o for tiktoken, gpt2 for huggingface)")
	f.String("tokenizer-file", "", "Local tokenizer.json for the huggingface tokenizer")
	addFilterFlags(cmd, &cfgFile)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCode2Txt(cmd, args, cfgFile, deps)
	}
	return cmd
}

func runCode2Txt(cmd *cobra.Command, args []string, cfgFile string, deps Deps) error {
	s, err := config.Load(viper.New(), cmd.Flags(), appCode2Txt, cfgFile)
	if err != nil {
		return err
	}
	if s.CountTokens {
		if err := tokens.ValidateBackend(s.Tokenizer); err != nil {
			return &UsageError{Err: err}
		}
	}
	logger := logging.New(cmd.ErrOrStderr(), s.Verbose, s.Dev, appCode2Txt)
	defer logging.Sync(logger)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	arg := "."
	if len(args) > 0 {
		arg = args[0]
	}
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
		output = defaultTxtOutput
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

	doc := aggregate.Document{Files: res.Files, TOC: !s.NoTOC}
	err = sink.WriteAtomic(output, 0o644, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Fprintf(out, "Successfully created %s\n", output)
	if s.Verbose {
		printSummary(out, res)
	}

	if s.Tree {
		fmt.Fprint(out, aggregate.BuildTree(arg, res.Files))
	}
	if s.CountTokens {
		reportTokens(out, res.Files, s, deps, logger)
	}
	if s.Clipboard {
		if err := deps.WriteClipboard(doc.String()); err != nil {
			logger.Warn("Error writing to clipboard", zap.Error(err))
		} else {
			fmt.Fprintln(out, "Output copied to clipboard.")
		}
	}
	return nil
}

// reportTokens prints the token estimate. A tokenizer that cannot be loaded
// only costs the estimate, never the document.
func reportTokens(out io.Writer, files []aggregate.File, s config.Settings, deps Deps, logger *zap.Logger) {
	counter, err := deps.NewCounter(tokens.Options{
		Backend: s.Tokenizer,
		Model:   s.TokenModel,
		File:    s.TokenizerFile,
	}, logger)
	if err != nil {
		logger.Warn("Token counting disabled", zap.Error(err))
		return
	}
	texts := make(map[string]string, len(files))
	for _, f := range files {
		texts[f.Rel] = f.Content
	}
	summary := tokens.Count(counter, texts)
	for _, f := range files {
		logger.Debug("Tokens", zap.String("path", f.Rel), zap.Int("tokens", summary.PerFile[f.Rel]))
	}
	fmt.Fprintf(out, "Total tokens: %d\n", summary.Total)
}
