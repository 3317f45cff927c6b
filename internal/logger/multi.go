package logger

import "github.com/harrison/planflat/internal/flatten"

// MultiLogger fans every call out to each wrapped logger in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger wraps loggers; nil entries are dropped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogPhase(phase flatten.Phase, files int) {
	for _, l := range m.loggers {
		l.LogPhase(phase, files)
	}
}

func (m *MultiLogger) LogFileCopied(index, total int, mapping flatten.Mapping) {
	for _, l := range m.loggers {
		l.LogFileCopied(index, total, mapping)
	}
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogSummary(summary *flatten.Summary) {
	for _, l := range m.loggers {
		l.LogSummary(summary)
	}
}
