package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/planflat/internal/flatten"
)

// PrepareOutput makes dumpDir/name an empty directory, removing whatever
// was there before. cleared reports whether an earlier dump was removed.
// Failures are flatten DestinationUnwritable errors.
func PrepareOutput(dumpDir, name string) (dir string, cleared bool, err error) {
	if !validName(name) {
		return "", false, flatten.DestinationUnwritable(filepath.Join(dumpDir, name),
			errors.New("invalid plan name for an output directory"))
	}

	dir, err = OutputDir(dumpDir, name)
	if err != nil {
		return "", false, flatten.DestinationUnwritable(filepath.Join(dumpDir, name), err)
	}

	if _, statErr := os.Lstat(dir); statErr == nil {
		if err := os.RemoveAll(dir); err != nil {
			return "", false, flatten.DestinationUnwritable(dir, err)
		}
		cleared = true
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", cleared, flatten.DestinationUnwritable(dir, err)
	}
	return dir, cleared, nil
}

// OutputDir returns the absolute path of dumpDir/name without touching disk.
func OutputDir(dumpDir, name string) (string, error) {
	return filepath.Abs(filepath.Join(dumpDir, name))
}

// validName rejects names that would make the output directory dumpDir
// itself or escape it.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}
