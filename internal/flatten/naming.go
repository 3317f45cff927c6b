package flatten

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Mapping pairs a source file with the flat name it was assigned.
type Mapping struct {
	RelativePath string `yaml:"relative_path" json:"relative_path"`
	FlatName     string `yaml:"flat_name" json:"flat_name"`
	Source       string `yaml:"-" json:"-"`
	Size         int64  `yaml:"size" json:"size"`
}

// Candidate returns the pre-collision flat name for a slash-separated path
// relative to the source root. A file in the root keeps its name; a nested
// file gets its directory segments dash-joined in front of it:
//
//	readme.md        -> readme.md
//	a/b/c/file.txt   -> a-b-c-file.txt
func Candidate(relPath string) string {
	segments := strings.Split(path.Clean(relPath), "/")
	name := segments[len(segments)-1]
	if len(segments) == 1 {
		return name
	}
	return strings.Join(segments[:len(segments)-1], "-") + "-" + name
}

// CandidateFor computes the candidate for e. An entry without a relative
// path is placed against root; if it does not lie under root its bare
// filename is used.
func CandidateFor(root string, e FileEntry) string {
	if e.RelPath != "" {
		return Candidate(e.RelPath)
	}
	if rel, ok := relativeTo(root, e.Path); ok {
		return Candidate(rel)
	}
	return filepath.Base(e.Path)
}

// SplitExt splits name at its last dot. Leading dots do not start an
// extension, so ".env" has none.
func SplitExt(name string) (stem, ext string) {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name, ""
	}
	if strings.Trim(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// Registry hands out distinct flat names for a single run.
//
// The first request for a candidate gets it verbatim. The Nth repeat gets
// "{stem}-{N}{ext}". If that name was already handed out (for example a real
// file called "notes-1.md"), N keeps climbing until a free name turns up.
type Registry struct {
	counts   map[string]int
	assigned map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counts:   make(map[string]int),
		assigned: make(map[string]struct{}),
	}
}

// Reserve returns a flat name derived from candidate that no earlier call
// on this registry returned.
func (r *Registry) Reserve(candidate string) string {
	if _, taken := r.assigned[candidate]; !taken {
		if _, seen := r.counts[candidate]; !seen {
			r.counts[candidate] = 0
		}
		r.assigned[candidate] = struct{}{}
		return candidate
	}

	stem, ext := SplitExt(candidate)
	for {
		r.counts[candidate]++
		name := fmt.Sprintf("%s-%d%s", stem, r.counts[candidate], ext)
		if _, taken := r.assigned[name]; !taken {
			r.assigned[name] = struct{}{}
			return name
		}
	}
}

// Count reports how many collisions candidate has had so far.
func (r *Registry) Count(candidate string) int {
	return r.counts[candidate]
}

// Len reports how many names have been handed out.
func (r *Registry) Len() int {
	return len(r.assigned)
}

// Resolve assigns flat names to entries in order, so collision numbers
// follow the order of the slice.
func Resolve(root string, entries []FileEntry) []Mapping {
	registry := NewRegistry()
	mappings := make([]Mapping, 0, len(entries))
	for _, e := range entries {
		rel := e.RelPath
		if rel == "" {
			rel = filepath.Base(e.Path)
			if r, ok := relativeTo(root, e.Path); ok {
				rel = r
			}
		}
		mappings = append(mappings, Mapping{
			RelativePath: rel,
			FlatName:     registry.Reserve(CandidateFor(root, e)),
			Source:       e.Path,
			Size:         e.Size,
		})
	}
	return mappings
}
