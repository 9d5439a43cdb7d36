package models

import "time"

// LogKind classifies a session log entry.
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogOutput  LogKind = "output"
	LogError   LogKind = "error"
	LogSuccess LogKind = "success"
	LogWarning LogKind = "warning"
)

// LogEntry is a single append-only entry in a session's log.
type LogEntry struct {
	Kind      LogKind `json:"type"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// NewLogEntry stamps a log entry with the current time.
func NewLogEntry(kind LogKind, message string) LogEntry {
	return LogEntry{
		Kind:      kind,
		Message:   message,
		Timestamp: SessionTimestamp(time.Now()),
	}
}
