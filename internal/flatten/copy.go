package flatten

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Emitter copies source files into a flat destination directory.
type Emitter struct {
	dest string
}

// NewEmitter creates an Emitter writing into dest.
func NewEmitter(dest string) *Emitter {
	return &Emitter{dest: dest}
}

// Check verifies the destination is an existing directory.
func (em *Emitter) Check() error {
	info, err := os.Stat(em.dest)
	if err != nil {
		return DestinationUnwritable(em.dest, err)
	}
	if !info.IsDir() {
		return DestinationUnwritable(em.dest, fmt.Errorf("not a directory"))
	}
	return nil
}

// Copy writes the contents of src to dest/flatName, then applies the source
// permission bits and modification time. Data goes to a temp file that is
// renamed into place, so a failed copy leaves nothing behind. It returns the
// number of bytes copied.
func (em *Emitter) Copy(src, flatName string) (int64, error) {
	target := filepath.Join(em.dest, flatName)
	if _, err := os.Lstat(target); err == nil {
		return 0, CopyError(src, fmt.Errorf("%s: %w", target, fs.ErrExist))
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, CopyError(src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, CopyError(src, err)
	}

	tmp, err := os.CreateTemp(em.dest, ".planflat-*")
	if err != nil {
		return 0, CopyError(src, err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file unless it was renamed into place
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, in)
	if err != nil {
		return 0, CopyError(src, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, CopyError(src, err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return 0, CopyError(src, err)
	}
	// Zero atime leaves the access time untouched
	if err := os.Chtimes(tmpPath, time.Time{}, info.ModTime()); err != nil {
		return 0, CopyError(src, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return 0, CopyError(src, err)
	}

	tmp = nil
	return n, nil
}
