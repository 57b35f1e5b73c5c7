// Package walker enumerates the regular files below a root directory.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
)

var (
	ErrRootNotFound      = errors.New("directory does not exist")
	ErrRootNotADirectory = errors.New("path is not a directory")
)

// RootNotFoundError reports a traversal root that does not exist.
type RootNotFoundError struct {
	Root string
	Err  error
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("directory %s does not exist", e.Root)
}

func (e *RootNotFoundError) Is(target error) bool { return target == ErrRootNotFound }
func (e *RootNotFoundError) Unwrap() error        { return e.Err }

// RootNotADirectoryError reports a traversal root that is a file.
type RootNotADirectoryError struct {
	Root string
}

func (e *RootNotADirectoryError) Error() string {
	return fmt.Sprintf("%s is not a directory", e.Root)
}

func (e *RootNotADirectoryError) Is(target error) bool { return target == ErrRootNotADirectory }

// Candidate is a file discovered by the walk, before any filtering.
type Candidate struct {
	Rel string // slash separated, relative to the root
	Abs string
}

// Options controls which parts of the tree are visited.
type Options struct {
	// ExcludeFolders are folder names pruned wherever they appear as a full
	// path segment. Matching is case-sensitive.
	ExcludeFolders []string
	// Skip holds file paths that are never yielded. A file is skipped when
	// it is the same file as an entry, whatever path reaches it.
	Skip []string
	// Ignore is an optional .gitignore matcher, see LoadGitIgnore.
	Ignore gitignore.IgnoreMatcher
	Logger *zap.Logger
}

// ValidateRoot resolves root to an absolute path and checks that it is an
// existing directory.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &RootNotFoundError{Root: root, Err: err}
		}
		return "", fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", &RootNotADirectoryError{Root: root}
	}
	return abs, nil
}

// Walk validates root and returns a lazy sequence over every regular file
// below it. Entries are produced in lexical order per directory, but callers
// that need a global order must sort.
func Walk(root string, opts Options) (iter.Seq[Candidate], error) {
	abs, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	excluded := make(map[string]bool, len(opts.ExcludeFolders))
	for _, name := range opts.ExcludeFolders {
		excluded[name] = true
	}
	skip := newSkipSet(opts.Skip)

	return func(yield func(Candidate) bool) {
		w := &walk{
			excluded:  excluded,
			skip:      skip,
			ignore:    opts.Ignore,
			logger:    logger,
			ancestors: make(map[string]bool),
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			w.ancestors[real] = true
		}
		w.dir(abs, "", yield)
	}, nil
}

type walk struct {
	excluded map[string]bool
	skip     *skipSet
	ignore   gitignore.IgnoreMatcher
	logger   *zap.Logger
	// ancestors holds the real paths of the directories on the current
	// descent; a link back into one of them would recurse forever.
	ancestors map[string]bool
}

// dir visits one directory. It returns false once the consumer stops.
func (w *walk) dir(absDir, relDir string, yield func(Candidate) bool) bool {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		w.logger.Warn("Skipping unreadable directory", zap.String("path", absDir), zap.Error(err))
		return true
	}

	for _, entry := range entries {
		name := entry.Name()
		rel := path.Join(relDir, name)
		abs := filepath.Join(absDir, name)

		isDir := entry.IsDir()
		mode := entry.Type()
		var info fs.FileInfo
		if mode&fs.ModeSymlink != 0 {
			var err error
			if info, err = os.Stat(abs); err != nil {
				w.logger.Debug("Skipping dangling symlink", zap.String("path", rel), zap.Error(err))
				continue
			}
			isDir = info.IsDir()
			if !isDir && !info.Mode().IsRegular() {
				continue
			}
		} else if !isDir && !mode.IsRegular() {
			continue
		}

		if !isDir && w.skip.match(abs, entry, info) {
			w.logger.Debug("Skipping output file", zap.String("path", rel))
			continue
		}

		if isDir {
			if w.excluded[name] {
				w.logger.Debug("Skipping excluded folder", zap.String("path", rel))
				continue
			}
			if w.ignored(abs, true) {
				w.logger.Debug("Skipping gitignored folder", zap.String("path", rel))
				continue
			}
			real, err := filepath.EvalSymlinks(abs)
			if err != nil {
				w.logger.Warn("Skipping unresolvable directory", zap.String("path", rel), zap.Error(err))
				continue
			}
			if w.ancestors[real] {
				w.logger.Debug("Skipping symlink cycle", zap.String("path", rel), zap.String("target", real))
				continue
			}
			w.ancestors[real] = true
			more := w.dir(abs, rel, yield)
			delete(w.ancestors, real)
			if !more {
				return false
			}
			continue
		}

		if w.ignored(abs, false) {
			w.logger.Debug("Skipping gitignored file", zap.String("path", rel))
			continue
		}
		if !yield(Candidate{Rel: rel, Abs: abs}) {
			return false
		}
	}
	return true
}

// skipSet matches files by path and by identity, so a root or output given
// through a symlink still hits.
type skipSet struct {
	paths map[string]bool
	infos []fs.FileInfo
}

func newSkipSet(paths []string) *skipSet {
	s := &skipSet{paths: make(map[string]bool, len(paths))}
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			s.paths[abs] = true
		}
		// A file that does not exist yet cannot be met by the walk.
		if info, err := os.Stat(p); err == nil {
			s.infos = append(s.infos, info)
		}
	}
	return s
}

// match reports whether abs is a skipped file. info is the followed stat
// for symlinks and nil otherwise.
func (s *skipSet) match(abs string, entry fs.DirEntry, info fs.FileInfo) bool {
	if s.paths[abs] {
		return true
	}
	if len(s.infos) == 0 {
		return false
	}
	if info == nil {
		var err error
		if info, err = entry.Info(); err != nil {
			return false
		}
	}
	for _, skip := range s.infos {
		if os.SameFile(skip, info) {
			return true
		}
	}
	return false
}

// ignored asks the .gitignore matcher about an absolute path; the matcher
// relativizes it against the root it was loaded for.
func (w *walk) ignored(abs string, isDir bool) bool {
	return w.ignore != nil && w.ignore.Match(abs, isDir)
}

// LoadGitIgnore parses the .gitignore at the top of root. A missing file
// yields a nil matcher and no error.
func LoadGitIgnore(root string) (gitignore.IgnoreMatcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	matcher, err := gitignore.NewGitIgnore(p, root)
	if err != nil {
		return nil, fmt.Errorf("could not parse .gitignore file %s: %w", p, err)
	}
	return matcher, nil
}
