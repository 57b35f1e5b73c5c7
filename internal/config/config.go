// Package config layers defaults, an optional TOML file, environment
// variables and command-line flags into one immutable Settings value.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/waleking/code2pdf/internal/filter"
)

// Viper keys. Flags are bound to the key with the same name after dashes
// become underscores.
const (
	KeyOutput               = "output"
	KeyIncludeTypes         = "include_types"
	KeyIgnoreTypes          = "ignore_types"
	KeyIgnoreFolders        = "ignore_folders"
	KeyDefaultIgnoreTypes   = "default_ignore_types"
	KeyDefaultIgnoreFolders = "default_ignore_folders"
	KeyMaxFileSize          = "max_file_size"
	KeyNoTOC                = "no_toc"
	KeyVerbose              = "verbose"
	KeyGitIgnore            = "gitignore"
	KeyLanguages            = "languages"
	KeyWorkers              = "workers"
	KeyClipboard            = "clipboard"
	KeyCountTokens          = "count_tokens"
	KeyTokenModel           = "token_model"
	KeyTokenizer            = "tokenizer"
	KeyTokenizerFile        = "tokenizer_file"
	KeyStyle                = "style"
	KeyFont                 = "font"
	KeyDev                  = "dev"
	KeyTree                 = "tree"
)

// DefaultIgnoreFolders are pruned in addition to --ignore-folders.
var DefaultIgnoreFolders = []string{
	".git", ".svn", ".hg",
	"node_modules", "bower_components",
	"dist", "build", "target", "out",
	"__pycache__", ".pytest_cache", ".mypy_cache", ".tox",
	".venv", "venv", ".idea", ".vscode",
	".next", ".nuxt", "coverage", ".gradle",
}

// DefaultIgnoreTypes are file types that are never useful as text.
var DefaultIgnoreTypes = []string{
	"png", "jpg", "jpeg", "gif", "bmp", "ico", "webp", "tiff", "psd",
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"zip", "tar", "gz", "tgz", "bz2", "xz", "7z", "rar", "jar", "war",
	"exe", "dll", "so", "dylib", "o", "a", "class", "pyc", "pyo", "wasm",
	"woff", "woff2", "ttf", "otf", "eot",
	"mp3", "mp4", "wav", "avi", "mov", "mkv", "flac",
	"db", "sqlite", "ds_store",
}

// ErrInvalidSize reports a malformed --max-file-size value.
var ErrInvalidSize = errors.New("invalid size")

// DefaultMaxFileSize applies when neither config nor flags set a limit.
const DefaultMaxFileSize = "10M"

// Settings is the resolved configuration of one run.
type Settings struct {
	Output           string
	IncludeTypes     []string
	IgnoreTypes      []string
	IgnoreFolders    []string
	MaxFileSizeBytes int64
	NoTOC            bool
	Verbose          bool
	GitIgnore        bool
	Languages        string
	Workers          int
	Clipboard        bool
	CountTokens      bool
	TokenModel       string
	Tokenizer        string
	TokenizerFile    string
	Style            string
	Font             string
	Dev              bool
	Tree             bool
	// ConfigFile is the file that was read, if any.
	ConfigFile string
}

// Filter converts the settings into the filter policy.
func (s Settings) Filter() filter.Config {
	return filter.NewConfig(s.IncludeTypes, s.IgnoreTypes, s.IgnoreFolders, s.MaxFileSizeBytes)
}

// Load resolves Settings for app. Precedence, lowest first: built-in
// defaults, the TOML config file (cfgFile, or ~/.config/<app>/config.toml),
// <APP>_* environment variables, flags that were set explicitly. Flags not
// present in the set are simply not bound.
func Load(v *viper.Viper, flags *pflag.FlagSet, app, cfgFile string) (Settings, error) {
	v.SetDefault(KeyDefaultIgnoreFolders, DefaultIgnoreFolders)
	v.SetDefault(KeyDefaultIgnoreTypes, DefaultIgnoreTypes)
	v.SetDefault(KeyMaxFileSize, DefaultMaxFileSize)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "help" || f.Name == "config" {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Settings{}, bindErr
		}
	}

	v.SetEnvPrefix(strings.ToUpper(app))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", app))
		}
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	var s Settings
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		s.ConfigFile = v.ConfigFileUsed()
	}

	maxSize, err := ParseSize(v.GetString(KeyMaxFileSize))
	if err != nil {
		return Settings{}, err
	}

	s.Output = v.GetString(KeyOutput)
	s.IncludeTypes = list(v, KeyIncludeTypes)
	s.IgnoreTypes = append(list(v, KeyDefaultIgnoreTypes), list(v, KeyIgnoreTypes)...)
	s.IgnoreFolders = append(list(v, KeyDefaultIgnoreFolders), list(v, KeyIgnoreFolders)...)
	s.MaxFileSizeBytes = maxSize
	s.NoTOC = v.GetBool(KeyNoTOC)
	s.Verbose = v.GetBool(KeyVerbose)
	s.GitIgnore = v.GetBool(KeyGitIgnore)
	s.Languages = v.GetString(KeyLanguages)
	s.Workers = v.GetInt(KeyWorkers)
	s.Clipboard = v.GetBool(KeyClipboard)
	s.CountTokens = v.GetBool(KeyCountTokens)
	s.TokenModel = v.GetString(KeyTokenModel)
	s.Tokenizer = v.GetString(KeyTokenizer)
	s.TokenizerFile = v.GetString(KeyTokenizerFile)
	s.Style = v.GetString(KeyStyle)
	s.Font = v.GetString(KeyFont)
	s.Dev = v.GetBool(KeyDev)
	s.Tree = v.GetBool(KeyTree)
	return s, nil
}

// list reads a string list, accepting comma-separated entries from any
// layer ("py,js" from an environment variable as well as ["py", "js"]).
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, filter.SplitList(item)...)
	}
	return out
}

// ParseSize parses sizes such as "1024", "1K", "10M", "1.5G" or "2MiB" with
// binary multiples. "0" or "" means no limit.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w %q: use a number with an optional K, M or G suffix", ErrInvalidSize, s)
	}
	return n, nil
}
