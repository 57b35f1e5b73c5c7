package pdf

import (
	"errors"
	"os/exec"
	"strings"
)

// ErrDependencyMissing matches every DependencyMissingError.
var ErrDependencyMissing = errors.New("missing required dependencies")

// DependencyMissingError lists executables that are not on PATH.
type DependencyMissingError struct {
	Missing []string
}

func (e *DependencyMissingError) Error() string {
	return "Missing required dependencies: " + strings.Join(e.Missing, ", ")
}

func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// CheckDependencies looks up every executable on PATH and reports all that
// are missing at once.
func CheckDependencies(executables ...string) error {
	var missing []string
	for _, name := range executables {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &DependencyMissingError{Missing: missing}
	}
	return nil
}
