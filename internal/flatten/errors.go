package flatten

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a flatten failure.
type Kind int

const (
	// KindSourceNotFound means the source root does not exist.
	KindSourceNotFound Kind = iota
	// KindSourceNotADirectory means the source root exists but is not a directory.
	KindSourceNotADirectory
	// KindTraversal wraps a filesystem error hit while listing the source tree.
	KindTraversal
	// KindCopy wraps a filesystem error hit while copying one file.
	KindCopy
	// KindDestinationUnwritable means the destination cannot receive files.
	KindDestinationUnwritable
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSourceNotFound:
		return "source not found"
	case KindSourceNotADirectory:
		return "source not a directory"
	case KindTraversal:
		return "traversal error"
	case KindCopy:
		return "copy error"
	case KindDestinationUnwritable:
		return "destination unwritable"
	default:
		return "unknown"
	}
}

var (
	// ErrSourceNotFound matches any *Error of KindSourceNotFound.
	ErrSourceNotFound = errors.New("flatten: source not found")
	// ErrSourceNotADirectory matches any *Error of KindSourceNotADirectory.
	ErrSourceNotADirectory = errors.New("flatten: source is not a directory")
	// ErrTraversal matches any *Error of KindTraversal.
	ErrTraversal = errors.New("flatten: traversal failed")
	// ErrCopy matches any *Error of KindCopy.
	ErrCopy = errors.New("flatten: copy failed")
	// ErrDestinationUnwritable matches any *Error of KindDestinationUnwritable.
	ErrDestinationUnwritable = errors.New("flatten: destination unwritable")
	// ErrRunConsumed is returned when a Run is executed more than once.
	ErrRunConsumed = errors.New("flatten: run already executed")
)

var kindSentinels = map[Kind]error{
	KindSourceNotFound:        ErrSourceNotFound,
	KindSourceNotADirectory:   ErrSourceNotADirectory,
	KindTraversal:             ErrTraversal,
	KindCopy:                  ErrCopy,
	KindDestinationUnwritable: ErrDestinationUnwritable,
}

// Error is the failure reported by a flatten run. Path names the offending
// file or directory when one is known.
type Error struct {
	Kind  Kind
	Phase Phase
	Path  string
	Err   error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// SourceNotFound builds a KindSourceNotFound error for path.
func SourceNotFound(path string, err error) *Error {
	return newError(KindSourceNotFound, path, err)
}

// SourceNotADirectory builds a KindSourceNotADirectory error for path.
func SourceNotADirectory(path string) *Error {
	return newError(KindSourceNotADirectory, path, nil)
}

// TraversalError builds a KindTraversal error for path.
func TraversalError(path string, err error) *Error {
	return newError(KindTraversal, path, err)
}

// CopyError builds a KindCopy error for the source file at path.
func CopyError(path string, err error) *Error {
	return newError(KindCopy, path, err)
}

// DestinationUnwritable builds a KindDestinationUnwritable error for path.
func DestinationUnwritable(path string, err error) *Error {
	return newError(KindDestinationUnwritable, path, err)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Path != "" {
		sb.WriteString(fmt.Sprintf(" at %s", e.Path))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// stampPhase records the phase on every *Error in err, including the
// members of a joined error.
func stampPhase(err error, phase Phase) {
	if fe, ok := err.(*Error); ok {
		fe.Phase = phase
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, member := range joined.Unwrap() {
			stampPhase(member, phase)
		}
	}
}
