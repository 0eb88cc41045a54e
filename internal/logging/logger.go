package logging

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Logger provides structured logging with both console and database output
type Logger struct {
	db      *sql.DB
	console io.Writer
	mu      sync.Mutex
}

// LogEntry represents a single log entry
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Component string    `json:"component"` // e.g. "debounce", "daily", "restore"
	Archive   string    `json:"archive"`   // archive name this entry relates to, if any
	Message   string    `json:"message"`
}

// New creates a new Logger using an existing database connection.
// The caller is responsible for closing the database connection.
// A nil db degrades to console-only logging.
func New(db *sql.DB, console io.Writer) *Logger {
	if console == nil {
		console = os.Stdout
	}
	return &Logger{db: db, console: console}
}

// Log writes a log entry to both console and database
func (l *Logger) Log(level LogLevel, component, archive, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, args...)
	timestamp := time.Now()

	prefix := timestamp.Format("2006-01-02 15:04:05")
	if component != "" {
		prefix += fmt.Sprintf(" [%s", component)
		if archive != "" {
			prefix += fmt.Sprintf("/%s", archive)
		}
		prefix += "]"
	}
	fmt.Fprintf(l.console, "%s %s: %s\n", prefix, level, message)

	if l.db == nil {
		return
	}
	_, err := l.db.Exec(
		"INSERT INTO logs (timestamp, level, component, archive, message) VALUES (?, ?, ?, ?, ?)",
		timestamp, string(level), nullString(component), nullString(archive), message,
	)
	if err != nil {
		// If DB write fails, at least we have console output
		fmt.Fprintf(l.console, "ERROR: failed to write to log database: %v\n", err)
	}
}

// Info logs an info-level message
func (l *Logger) Info(format string, args ...any) {
	l.Log(LevelInfo, "", "", format, args...)
}

// Warn logs a warning-level message
func (l *Logger) Warn(format string, args ...any) {
	l.Log(LevelWarn, "", "", format, args...)
}

// Error logs an error-level message
func (l *Logger) Error(format string, args ...any) {
	l.Log(LevelError, "", "", format, args...)
}

// Debug logs a debug-level message
func (l *Logger) Debug(format string, args ...any) {
	l.Log(LevelDebug, "", "", format, args...)
}

// ComponentLogger wraps a Logger with component context
type ComponentLogger struct {
	logger    *Logger
	component string
	archive   string
}

// WithComponent creates a ComponentLogger scoped to one subsystem
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// WithArchive creates a new ComponentLogger with archive context added
func (cl *ComponentLogger) WithArchive(archive string) *ComponentLogger {
	return &ComponentLogger{logger: cl.logger, component: cl.component, archive: archive}
}

func (cl *ComponentLogger) Info(format string, args ...any) {
	cl.logger.Log(LevelInfo, cl.component, cl.archive, format, args...)
}

func (cl *ComponentLogger) Warn(format string, args ...any) {
	cl.logger.Log(LevelWarn, cl.component, cl.archive, format, args...)
}

func (cl *ComponentLogger) Error(format string, args ...any) {
	cl.logger.Log(LevelError, cl.component, cl.archive, format, args...)
}

func (cl *ComponentLogger) Debug(format string, args ...any) {
	cl.logger.Log(LevelDebug, cl.component, cl.archive, format, args...)
}

// QueryOptions defines filters for querying logs
type QueryOptions struct {
	Component string
	Level     LogLevel
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Query retrieves log entries based on filters
func (l *Logger) Query(opts QueryOptions) ([]LogEntry, error) {
	if l.db == nil {
		return nil, fmt.Errorf("log database not available")
	}

	query := "SELECT id, timestamp, level, COALESCE(component, ''), COALESCE(archive, ''), message FROM logs WHERE 1=1"
	args := []any{}

	if opts.Component != "" {
		query += " AND component = ?"
		args = append(args, opts.Component)
	}
	if opts.Level != "" {
		query += " AND level = ?"
		args = append(args, string(opts.Level))
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}
	if !opts.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes as [] instead of null
	entries := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		var levelStr string
		if err := rows.Scan(&e.ID, &e.Timestamp, &levelStr, &e.Component, &e.Archive, &e.Message); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Level = LogLevel(levelStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// PruneOldLogs removes log entries older than the specified duration
func (l *Logger) PruneOldLogs(olderThan time.Duration) (int64, error) {
	if l.db == nil {
		return 0, fmt.Errorf("log database not available")
	}
	cutoff := time.Now().Add(-olderThan)
	result, err := l.db.Exec("DELETE FROM logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune logs: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
