package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extensions is a list of file extensions to include (e.g., ".md"). Empty means all.
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
	// Exclude holds filepath.Match globs tested against every base name,
	// files and directories alike. A matching directory is not descended.
	Exclude []string
	// SkipHidden skips files and directories whose name starts with "."
	SkipHidden bool
}

// File is a regular file found by ScanDirectory.
type File struct {
	// Path is the absolute path of the file
	Path string
	// RelPath is the slash-separated path relative to the scan root
	RelPath string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// ScanError records a per-entry failure that did not stop the scan.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("error accessing %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files sorted bytewise by RelPath
	Files []File
	// Errors encountered during scanning, in walk order
	Errors []*ScanError
}

// ScanDirectory walks dir and returns every regular file accepted by opts.
//
// Symlinks are never descended. A symlink to a regular file is reported with
// the target's size, mode and mtime; a symlink to a directory is ignored; a
// dangling symlink is recorded in Errors.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}
	// WalkDir does not descend a symlinked root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	for _, pattern := range opts.Exclude {
		if _, err := filepath.Match(pattern, "x"); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	result := &ScanResult{
		Files:  make([]File, 0),
		Errors: make([]*ScanError, 0),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: path, Err: err})
			return nil
		}

		if path == root {
			return nil
		}

		name := d.Name()
		if (opts.SkipHidden && strings.HasPrefix(name, ".")) || excluded(name, opts.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: path, Err: err})
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		var fi fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			fi, err = os.Stat(path)
		} else {
			fi, err = d.Info()
		}
		if err != nil {
			result.Errors = append(result.Errors, &ScanError{Path: path, Err: err})
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		result.Files = append(result.Files, File{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    fi.Size(),
			Mode:    fi.Mode(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].RelPath < result.Files[j].RelPath
	})

	return result, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
