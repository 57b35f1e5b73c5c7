// Package source resolves the directory argument of a command, cloning it
// first when it names a remote Git repository.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// IsGitURL reports whether input looks like a Git repository URL.
// Plain http(s) URLs without a .git suffix are treated as paths.
func IsGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") ||
		strings.HasPrefix(input, "git@") ||
		strings.HasPrefix(input, "ssh://")
}

// Resolved is a directory ready to be walked.
type Resolved struct {
	Dir string
	// Remote is the URL the directory was cloned from, empty for local paths.
	Remote string
	// Cleanup removes the clone. It is a no-op for local paths.
	Cleanup func()
}

// Resolve returns arg unchanged when it is a local path and a fresh shallow
// clone otherwise. An existing local path always wins, so a directory named
// "project.git" is walked rather than cloned. progress receives clone output
// and may be nil.
func Resolve(ctx context.Context, arg string, progress io.Writer, logger *zap.Logger) (Resolved, error) {
	if _, err := os.Stat(arg); err == nil || !IsGitURL(arg) {
		return Resolved{Dir: arg, Cleanup: func() {}}, nil
	}
	dir, err := Clone(ctx, arg, progress, logger)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Dir:    dir,
		Remote: arg,
		Cleanup: func() {
			if err := os.RemoveAll(dir); err != nil {
				logger.Warn("Failed to remove clone", zap.String("dir", dir), zap.Error(err))
			}
		},
	}, nil
}

// Clone fetches the default branch of url into a new temporary directory and
// returns its path. The directory is removed if the clone fails.
func Clone(ctx context.Context, url string, progress io.Writer, logger *zap.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", "code2pdf-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	logger.Info("Cloning Git repository", zap.String("url", url), zap.String("dir", tempDir))

	opts := &git.CloneOptions{
		URL:           url,
		Progress:      progress,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	}
	// The file transport does not negotiate shallow fetches.
	if !isLocalURL(url) {
		opts.Depth = 1
	}
	_, err = git.PlainCloneContext(ctx, tempDir, false, opts)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to clone repository '%s': %w", url, err)
	}

	logger.Debug("Finished cloning", zap.String("url", url))
	return tempDir, nil
}

func isLocalURL(url string) bool {
	if strings.HasPrefix(url, "file://") {
		return true
	}
	_, err := os.Stat(url)
	return err == nil
}
