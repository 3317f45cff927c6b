package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/planflat/internal/flatten"
)

// FileLogger writes one log file per dump run into a log directory and keeps
// a latest.log symlink pointing at the newest run. It is thread-safe and
// supports the same level filtering as ConsoleLogger. Colors are never used.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir at the given level.
// The directory is created if missing. The run file is named
// run-YYYYMMDD-HHMMSS.log; a clash within the same second appends a counter.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	for i := 1; err != nil && os.IsExist(err); i++ {
		runFile = filepath.Join(logDir, fmt.Sprintf("run-%s-%d.log", stamp, i))
		file, err = os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write("=== planflat Run Log ===\n")
	fl.write(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// Path returns the path of this run's log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogPhase records a phase change at DEBUG level.
func (fl *FileLogger) LogPhase(phase flatten.Phase, files int) {
	if !fl.shouldLog("debug") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Phase: %s (%d files)\n", timestamp(), phase, files))
}

// LogFileCopied records one copied file at INFO level, with its position.
func (fl *FileLogger) LogFileCopied(index, total int, m flatten.Mapping) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%d/%d] %s -> %s (%d bytes)\n",
		timestamp(), index, total, m.RelativePath, m.FlatName, m.Size))
}

// LogSummary records the run summary at INFO level.
func (fl *FileLogger) LogSummary(summary *flatten.Summary) {
	if summary == nil || !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	status := "SUCCESS"
	switch {
	case summary.DryRun:
		status = "DRY-RUN"
	case summary.Empty():
		status = "EMPTY"
	}

	fl.write(fmt.Sprintf(
		"\n[%s] === DUMP SUMMARY ===\n"+
			"[%s] Source:       %s\n"+
			"[%s] Destination:  %s\n"+
			"[%s] Files:        %d\n"+
			"[%s] Bytes:        %d\n"+
			"[%s] Total time:   %.3fs\n"+
			"[%s] Status:       %s\n"+
			"[%s] Completed at: %s\n",
		ts,
		ts, summary.Source,
		ts, summary.Destination,
		ts, len(summary.Files),
		ts, summary.Bytes,
		ts, summary.Duration.Seconds(),
		ts, status,
		ts, time.Now().Format(time.RFC3339),
	))
}

func (fl *FileLogger) write(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}

// Close closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}
