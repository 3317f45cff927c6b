package flatten

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// Phase is a state of a flatten run.
type Phase int

const (
	// PhaseScanning enumerates the source tree.
	PhaseScanning Phase = iota
	// PhaseResolving assigns flat names.
	PhaseResolving
	// PhaseCopying writes files into the destination.
	PhaseCopying
	// PhaseDone is the terminal success state.
	PhaseDone
	// PhaseFailed is the terminal failure state.
	PhaseFailed
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseResolving:
		return "resolving"
	case PhaseCopying:
		return "copying"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Logger receives progress from a run.
type Logger interface {
	LogPhase(phase Phase, files int)
	LogFileCopied(index, total int, m Mapping)
}

// NoOpLogger discards all run progress.
type NoOpLogger struct{}

// LogPhase is a no-op implementation.
func (NoOpLogger) LogPhase(Phase, int) {}

// LogFileCopied is a no-op implementation.
func (NoOpLogger) LogFileCopied(int, int, Mapping) {}

// Summary describes a finished run.
type Summary struct {
	Source      string        `yaml:"source"`
	Destination string        `yaml:"destination"`
	Copied      int           `yaml:"copied"`
	Bytes       int64         `yaml:"bytes"`
	DryRun      bool          `yaml:"dry_run,omitempty"`
	Duration    time.Duration `yaml:"duration"`
	Files       []Mapping     `yaml:"files"`
}

// Empty reports whether the source tree held no files.
func (s *Summary) Empty() bool {
	return len(s.Files) == 0
}

// Option configures a Run.
type Option func(*Run)

// WithLogger sets the logger that receives phase and copy events.
func WithLogger(l Logger) Option {
	return func(r *Run) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExclude skips files and directories whose base name matches any glob.
func WithExclude(globs []string) Option {
	return func(r *Run) {
		r.exclude = append([]string(nil), globs...)
	}
}

// WithDryRun stops the run after names are resolved; nothing is copied.
func WithDryRun() Option {
	return func(r *Run) {
		r.dryRun = true
	}
}

// Run is a single flatten of one source tree into one destination. It moves
// through Scanning, Resolving, Copying and Done, or stops in Failed. A Run
// cannot be executed twice.
type Run struct {
	source  string
	dest    string
	exclude []string
	dryRun  bool
	logger  Logger

	phase    Phase
	executed bool
}

// NewRun prepares a run; nothing touches the filesystem until Execute.
func NewRun(source, dest string, opts ...Option) *Run {
	r := &Run{
		source: source,
		dest:   dest,
		logger: NoOpLogger{},
		phase:  PhaseScanning,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns the state the run is in, or stopped in.
func (r *Run) Phase() Phase {
	return r.phase
}

// Execute performs the run. The returned error is a *Error (or a join of
// them for traversal failures), or the context's error if ctx is done
// between files.
func (r *Run) Execute(ctx context.Context) (*Summary, error) {
	if r.executed {
		return nil, ErrRunConsumed
	}
	r.executed = true
	start := time.Now()

	source, err := filepath.Abs(r.source)
	if err != nil {
		return nil, r.fail(SourceNotFound(r.source, err))
	}
	dest, err := filepath.Abs(r.dest)
	if err != nil {
		return nil, r.fail(DestinationUnwritable(r.dest, err))
	}

	r.enter(PhaseScanning, 0)
	entries, err := Enumerate(source, r.exclude)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseResolving, len(entries))
	mappings := Resolve(source, entries)

	summary := &Summary{
		Source:      source,
		Destination: dest,
		DryRun:      r.dryRun,
		Files:       mappings,
	}

	if r.dryRun {
		summary.Duration = time.Since(start)
		r.enter(PhaseDone, len(mappings))
		return summary, nil
	}

	r.enter(PhaseCopying, len(mappings))
	emitter := NewEmitter(dest)
	if err := emitter.Check(); err != nil {
		return nil, r.fail(err)
	}

	for i, m := range mappings {
		if err := ctx.Err(); err != nil {
			r.enter(PhaseFailed, i)
			return nil, fmt.Errorf("flatten interrupted after %d of %d files: %w", i, len(mappings), err)
		}
		n, err := emitter.Copy(m.Source, m.FlatName)
		if err != nil {
			return nil, r.fail(err)
		}
		summary.Copied++
		summary.Bytes += n
		r.logger.LogFileCopied(i+1, len(mappings), m)
	}

	summary.Duration = time.Since(start)
	r.enter(PhaseDone, summary.Copied)
	return summary, nil
}

func (r *Run) enter(phase Phase, files int) {
	r.phase = phase
	r.logger.LogPhase(phase, files)
}

func (r *Run) fail(err error) error {
	stampPhase(err, r.phase)
	r.enter(PhaseFailed, 0)
	return err
}

// Flatten copies every file under source into dest under collision-free
// flat names. dest must already exist. An empty source tree is a success
// with zero files.
func Flatten(ctx context.Context, source, dest string, opts ...Option) (*Summary, error) {
	return NewRun(source, dest, opts...).Execute(ctx)
}
