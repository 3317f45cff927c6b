package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvHome names the variable that pins the planflat home directory.
const EnvHome = "PLANFLAT_HOME"

// GetHome returns the planflat home directory
// Priority order:
//  1. PLANFLAT_HOME environment variable (if set)
//  2. <repo root>/.planflat (repo root = first ancestor with .planflat-root or .git)
//  3. <cwd>/.planflat (fallback)
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create planflat home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	base := cwd
	if root, err := FindRepoRoot(cwd); err == nil {
		base = root
	}

	home := filepath.Join(base, ".planflat")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create planflat home directory: %w", err)
	}
	return home, nil
}

// FindRepoRoot walks up from start to the first directory holding a
// .planflat-root marker or a .git entry.
func FindRepoRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(current, ".planflat-root")); err == nil {
			return current, nil
		}
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("repository root not found above %s (looking for .planflat-root or .git)", start)
}

// GetHistoryDBPath returns the history database path: dbPath when set,
// else $PLANFLAT_HOME/history/runs.db. The parent directory is created.
func GetHistoryDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := GetHome()
		if err != nil {
			return "", err
		}
		dbPath = filepath.Join(home, "history", "runs.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}
	return dbPath, nil
}
