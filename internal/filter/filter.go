// Package filter decides which walked files take part in an aggregate and
// classifies their content as text or binary.
package filter

import (
	"path"
	"slices"
	"strings"

	"github.com/waleking/code2pdf/internal/walker"
)

// Config is the immutable selection policy for one run.
type Config struct {
	// IncludeExtensions is an allow-list of file types. Empty allows all.
	IncludeExtensions []string
	// ExcludeExtensions is a deny-list of file types, applied after the
	// allow-list. It wins when a type is in both.
	ExcludeExtensions []string
	// ExcludeFolders are folder names pruned during the walk.
	ExcludeFolders []string
	// MaxFileSizeBytes excludes larger files. Zero means no limit.
	MaxFileSizeBytes int64
}

// Reason explains why a candidate was left out.
type Reason string

const (
	Kept          Reason = ""
	NotIncluded   Reason = "not in include list"
	ExcludedType  Reason = "excluded type"
	TooLarge      Reason = "exceeds max file size"
	BinaryContent Reason = "binary content"
)

// NewConfig normalizes the lists so lookups are plain comparisons.
func NewConfig(include, exclude, folders []string, maxSize int64) Config {
	return Config{
		IncludeExtensions: NormalizeTypes(include),
		ExcludeExtensions: NormalizeTypes(exclude),
		ExcludeFolders:    cleanList(folders),
		MaxFileSizeBytes:  maxSize,
	}
}

// Included reports whether a candidate of the given size passes the type
// and size rules.
func (c Config) Included(cand walker.Candidate, size int64) bool {
	return c.Check(cand, size) == Kept
}

// Check is Included with the reason for an exclusion.
func (c Config) Check(cand walker.Candidate, size int64) Reason {
	typ := FileType(path.Base(cand.Rel))
	if len(c.IncludeExtensions) > 0 && !slices.Contains(c.IncludeExtensions, typ) {
		return NotIncluded
	}
	if slices.Contains(c.ExcludeExtensions, typ) {
		return ExcludedType
	}
	if c.MaxFileSizeBytes > 0 && size > c.MaxFileSizeBytes {
		return TooLarge
	}
	return Kept
}

// FileType is the key matched against the include and exclude lists:
// well-known extensionless names map to a fixed type, anything else to its
// final dot-segment, lower-cased and without the dot.
func FileType(name string) string {
	switch {
	case name == "Dockerfile" || strings.HasPrefix(name, "Dockerfile."):
		return "dockerfile"
	case name == "Makefile" || name == "makefile" || name == "GNUmakefile":
		return "makefile"
	case strings.HasPrefix(name, ".env"):
		return "env"
	}
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// NormalizeTypes trims, lower-cases and strips "." or "*." prefixes so that
// "py", ".PY" and "*.py" all mean the same type.
func NormalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimPrefix(t, "*")
		t = strings.TrimPrefix(t, ".")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitList splits a comma-separated flag value.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return cleanList(strings.Split(s, ","))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
