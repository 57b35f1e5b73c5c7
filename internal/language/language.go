// Package language maps file names to the tag written after a code fence.
package language

import (
	"fmt"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// extensions maps a lower-case extension, dot included, to its tag.
var extensions = map[string]string{
	".py":         "python",
	".pyw":        "python",
	".pyi":        "python",
	".js":         "javascript",
	".mjs":        "javascript",
	".cjs":        "javascript",
	".jsx":        "jsx",
	".ts":         "typescript",
	".tsx":        "tsx",
	".java":       "java",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".scala":      "scala",
	".groovy":     "groovy",
	".gradle":     "groovy",
	".c":          "c",
	".h":          "c",
	".cpp":        "cpp",
	".cc":         "cpp",
	".cxx":        "cpp",
	".hpp":        "cpp",
	".hh":         "cpp",
	".hxx":        "cpp",
	".cs":         "csharp",
	".go":         "go",
	".rs":         "rust",
	".rb":         "ruby",
	".php":        "php",
	".swift":      "swift",
	".m":          "objectivec",
	".mm":         "objectivec",
	".lua":        "lua",
	".pl":         "perl",
	".pm":         "perl",
	".r":          "r",
	".jl":         "julia",
	".dart":       "dart",
	".ex":         "elixir",
	".exs":        "elixir",
	".erl":        "erlang",
	".hs":         "haskell",
	".clj":        "clojure",
	".ml":         "ocaml",
	".fs":         "fsharp",
	".vb":         "vbnet",
	".sh":         "bash",
	".bash":       "bash",
	".zsh":        "zsh",
	".fish":       "fish",
	".ps1":        "powershell",
	".bat":        "batch",
	".cmd":        "batch",
	".sql":        "sql",
	".html":       "html",
	".htm":        "html",
	".xml":        "xml",
	".svg":        "xml",
	".css":        "css",
	".scss":       "scss",
	".sass":       "sass",
	".less":       "less",
	".vue":        "vue",
	".svelte":     "svelte",
	".json":       "json",
	".jsonc":      "json",
	".yml":        "yaml",
	".yaml":       "yaml",
	".toml":       "toml",
	".ini":        "ini",
	".cfg":        "ini",
	".conf":       "ini",
	".properties": "properties",
	".md":         "markdown",
	".markdown":   "markdown",
	".rst":        "rst",
	".tex":        "latex",
	".txt":        "text",
	".proto":      "protobuf",
	".graphql":    "graphql",
	".gql":        "graphql",
	".tf":         "hcl",
	".hcl":        "hcl",
	".cue":        "cue",
	".nix":        "nix",
	".dockerfile": "dockerfile",
	".mk":         "makefile",
	".cmake":      "cmake",
	".diff":       "diff",
	".patch":      "diff",
	".csv":        "csv",
	".zig":        "zig",
	".v":          "verilog",
	".vhd":        "vhdl",
	".asm":        "nasm",
	".s":          "asm",
}

// filenames maps exact file names to their tag; they take precedence over
// the extension.
var filenames = map[string]string{
	"Dockerfile":     "dockerfile",
	"Containerfile":  "dockerfile",
	"Makefile":       "makefile",
	"makefile":       "makefile",
	"GNUmakefile":    "makefile",
	"CMakeLists.txt": "cmake",
	"Gemfile":        "ruby",
	"Rakefile":       "ruby",
	"Vagrantfile":    "ruby",
	"Jenkinsfile":    "groovy",
	"go.mod":         "go",
	"go.sum":         "text",
	".bashrc":        "bash",
	".zshrc":         "zsh",
	".profile":       "bash",
	".gitignore":     "gitignore",
	".dockerignore":  "gitignore",
}

// Info describes one language in an override file. The layout follows the
// GitHub linguist languages.yml, trimmed to what detection needs.
type Info struct {
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// Table resolves tags. The zero value uses only the built-in mapping.
type Table struct {
	extensionMap map[string]string
	filenameMap  map[string]string
}

// Default is the built-in table.
var Default = &Table{}

// Tag returns the language tag for a file name using the built-in table.
func Tag(name string) string {
	return Default.Tag(name)
}

// Tag returns the fence tag for a file name or path, or "" when the name is
// unknown. Lookup order: overrides by name, built-in by name, special
// prefixes, overrides by extension, built-in by extension.
func (t *Table) Tag(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))

	if t != nil {
		if tag, ok := t.filenameMap[base]; ok {
			return tag
		}
	}
	if tag, ok := filenames[base]; ok {
		return tag
	}
	switch {
	case strings.HasPrefix(base, "Dockerfile."):
		return "dockerfile"
	case strings.HasPrefix(base, ".env"):
		return "bash"
	}
	if ext == "" {
		return ""
	}
	if t != nil {
		if tag, ok := t.extensionMap[ext]; ok {
			return tag
		}
	}
	return extensions[ext]
}

// Load parses an override file of the form
//
//	python:
//	  extensions: [".py", ".pyx"]
//	  filenames: ["SConstruct"]
//
// and returns a table layered over the built-in mapping.
func Load(file string) (*Table, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading language file %s: %w", file, err)
	}
	return Parse(data)
}

// Parse is Load on in-memory YAML.
func Parse(data []byte) (*Table, error) {
	var langs map[string]Info
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return nil, fmt.Errorf("error parsing language file: %w", err)
	}

	t := &Table{
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}
	// Sorted so that two languages claiming one extension resolve the same
	// way every run.
	for _, tag := range slices.Sorted(maps.Keys(langs)) {
		info := langs[tag]
		for _, ext := range info.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			if _, taken := t.extensionMap[ext]; !taken {
				t.extensionMap[ext] = tag
			}
		}
		for _, fname := range info.Filenames {
			if _, taken := t.filenameMap[fname]; !taken {
				t.filenameMap[fname] = tag
			}
		}
	}
	return t, nil
}
