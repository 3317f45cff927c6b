package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/planflat/internal/flatten"
)

// Info describes one plan directory.
type Info struct {
	Name  string
	Path  string
	Title string
	// Files is the number of files a dump would copy
	Files int
	// Err is set when the plan could not be enumerated; Files is then 0
	Err error
}

// List returns the plan directories directly under plansDir, sorted by
// name. Hidden directories are skipped. File counts honour exclude the
// same way a dump does.
func List(plansDir string, exclude []string) ([]Info, error) {
	entries, err := os.ReadDir(plansDir)
	if err != nil {
		return nil, fmt.Errorf("read plans directory %s: %w", plansDir, err)
	}

	var plans []Info
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(plansDir, entry.Name())
		if !isDir(path) {
			continue
		}

		info := Info{
			Name:  entry.Name(),
			Path:  path,
			Title: Title(path),
		}
		files, err := flatten.Enumerate(path, exclude)
		if err != nil {
			info.Err = err
		} else {
			info.Files = len(files)
		}
		plans = append(plans, info)
	}
	return plans, nil
}
