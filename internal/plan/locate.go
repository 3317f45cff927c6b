// Package plan finds plan directories and prepares the dump directories
// they are flattened into.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPlanNotFound is returned when no candidate directory exists for a plan.
var ErrPlanNotFound = errors.New("plan directory not found")

// Locate resolves a plan name or path to an absolute directory.
//
// An input naming an existing directory is used directly. Otherwise the
// input is treated as a name under plansDir, first as given and then with
// each suffix appended, and the first existing directory wins.
func Locate(input, plansDir string, suffixes []string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: empty plan name", ErrPlanNotFound)
	}

	candidates := []string{input}
	if !filepath.IsAbs(input) {
		candidates = append(candidates, filepath.Join(plansDir, input))
		for _, suffix := range suffixes {
			candidates = append(candidates, filepath.Join(plansDir, input+suffix))
		}
	}

	for _, candidate := range candidates {
		if isDir(candidate) {
			return resolve(candidate)
		}
	}

	return "", fmt.Errorf("%w: %s", ErrPlanNotFound, input)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve plan path %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
