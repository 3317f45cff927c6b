package flatten

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/planflat/internal/fileutil"
)

// FileEntry is one regular file found under the source root.
type FileEntry struct {
	// Path is the absolute path of the file
	Path string
	// RelPath is the slash-separated path relative to the source root
	RelPath string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Segments returns the relative path split into its components, the last
// being the filename.
func (e FileEntry) Segments() []string {
	return strings.Split(e.RelPath, "/")
}

// Enumerate returns every regular file under root, sorted bytewise by
// relative path. Entries whose names match one of the exclude globs are
// skipped, and so is everything beneath an excluded directory.
//
// Per-entry failures do not stop the walk. They are gathered and returned
// together as a joined error of TraversalErrors, with no entries.
func Enumerate(root string, exclude []string) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, SourceNotFound(root, err)
		}
		return nil, TraversalError(root, err)
	}
	if !info.IsDir() {
		return nil, SourceNotADirectory(root)
	}

	result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
		Recursive: true,
		Exclude:   exclude,
	})
	if err != nil {
		return nil, TraversalError(root, err)
	}

	if len(result.Errors) > 0 {
		errs := make([]error, 0, len(result.Errors))
		for _, scanErr := range result.Errors {
			errs = append(errs, TraversalError(scanErr.Path, scanErr.Err))
		}
		return nil, errors.Join(errs...)
	}

	entries := make([]FileEntry, 0, len(result.Files))
	for _, f := range result.Files {
		entries = append(entries, FileEntry{
			Path:    f.Path,
			RelPath: f.RelPath,
			Size:    f.Size,
			Mode:    f.Mode,
			ModTime: f.ModTime,
		})
	}
	return entries, nil
}

// relativeTo expresses path relative to root in slash form. ok is false when
// path does not lie under root.
func relativeTo(root, path string) (rel string, ok bool) {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(r) {
		return "", false
	}
	return filepath.ToSlash(r), true
}
