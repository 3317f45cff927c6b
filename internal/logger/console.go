// Package logger provides logging implementations for planflat runs.
//
// Loggers receive flatten progress (phase changes and copied files), the
// run summary, and free-form leveled messages from the CLI. Implementations
// are thread-safe and write to the console or to per-run log files.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/planflat/internal/flatten"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is what the CLI logs a dump through.
type Logger interface {
	flatten.Logger
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSummary(summary *flatten.Summary)
}

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w itself is a color-capable terminal.
// NO_COLOR disables color regardless.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newColor builds a color that ignores fatih/color's global NoColor, which
// only reflects stdout. Callers decide per writer via colorOutput.
func newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return newColor(color.FgHiBlack)
	case "DEBUG":
		return newColor(color.FgCyan)
	case "INFO":
		return newColor(color.FgBlue)
	case "WARN":
		return newColor(color.FgYellow)
	case "ERROR":
		return newColor(color.FgRed)
	default:
		return newColor(color.Reset)
	}
}

// LogPhase logs a run phase change at DEBUG level. Entering the copy phase
// also arms the progress bar.
// Format: "[HH:MM:SS] Phase: <phase> (<n> files)"
func (cl *ConsoleLogger) LogPhase(phase flatten.Phase, files int) {
	if cl.writer == nil {
		return
	}

	cl.mutex.Lock()
	if phase == flatten.PhaseCopying {
		cl.progress = NewProgressBar(files, 20, cl.colorOutput)
		cl.progress.SetPrefix("Progress: ")
	}
	cl.mutex.Unlock()

	if !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	name := phase.String()
	if cl.colorOutput {
		switch phase {
		case flatten.PhaseDone:
			name = newColor(color.FgGreen).Sprint(name)
		case flatten.PhaseFailed:
			name = newColor(color.FgRed).Sprint(name)
		default:
			name = newColor(color.Bold).Sprint(name)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] Phase: %s (%d files)\n", timestamp(), name, files)
}

// LogFileCopied logs one copied file at INFO level, plus a progress line at
// DEBUG level.
// Format: "[HH:MM:SS] Copied: <relative path> -> <flat name>"
func (cl *ConsoleLogger) LogFileCopied(index, total int, m flatten.Mapping) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	flat := m.FlatName
	if cl.colorOutput {
		flat = newColor(color.FgCyan).Sprint(flat)
	}
	fmt.Fprintf(cl.writer, "[%s] Copied: %s -> %s\n", ts, m.RelativePath, flat)

	if cl.progress != nil && cl.shouldLog("debug") {
		cl.progress.Update(index)
		fmt.Fprintf(cl.writer, "[%s] %s\n", ts, cl.progress.Render())
	}
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(summary *flatten.Summary) {
	if cl.writer == nil || summary == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Dump Summary ==="
	copied := fmt.Sprintf("Files copied: %d", summary.Copied)
	if summary.DryRun {
		header = "=== Dry Run Summary ==="
		copied = fmt.Sprintf("Files resolved: %d", len(summary.Files))
	}
	if cl.colorOutput {
		header = newColor(color.Bold).Sprint(header)
		copied = newColor(color.FgGreen).Sprint(copied)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Source: %s\n", ts, summary.Source)
	fmt.Fprintf(&b, "[%s] Output directory: %s\n", ts, summary.Destination)
	fmt.Fprintf(&b, "[%s] %s\n", ts, copied)
	fmt.Fprintf(&b, "[%s] Bytes: %d\n", ts, summary.Bytes)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))
	io.WriteString(cl.writer, b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "120ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct {
	flatten.NoOpLogger
}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogTrace is a no-op implementation.
func (n *NoOpLogger) LogTrace(message string) {}

// LogDebug is a no-op implementation.
func (n *NoOpLogger) LogDebug(message string) {}

// LogInfo is a no-op implementation.
func (n *NoOpLogger) LogInfo(message string) {}

// LogWarn is a no-op implementation.
func (n *NoOpLogger) LogWarn(message string) {}

// LogError is a no-op implementation.
func (n *NoOpLogger) LogError(message string) {}

// LogSummary is a no-op implementation.
func (n *NoOpLogger) LogSummary(summary *flatten.Summary) {}
