package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LogLevel represents the log level
type LogLevel int

const (
	// DEBUG level
	DEBUG LogLevel = iota
	// INFO level
	INFO
	// WARN level
	WARN
	// ERROR level
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[90m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

// Logger is a leveled logger writing to a file and optionally the console,
// rotating the file once it grows past maxSize.
type Logger struct {
	level       LogLevel
	file        *os.File
	console     bool
	filePath    string
	maxSize     int64 // bytes
	maxBackups  int
	currentSize int64
	mu          sync.Mutex
}

// Config represents the configuration for the logger
type Config struct {
	Level      LogLevel
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	Console    bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		FilePath:   "./logs/solismqtt.log",
		MaxSize:    10,
		MaxBackups: 5,
		Console:    true,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory failed: %v", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file failed: %v", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file failed: %v", err)
	}

	return &Logger{
		level:       config.Level,
		file:        file,
		console:     config.Console,
		filePath:    config.FilePath,
		maxSize:     int64(config.MaxSize) * 1024 * 1024,
		maxBackups:  config.MaxBackups,
		currentSize: info.Size(),
	}, nil
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	if l.console {
		fmt.Fprintf(os.Stdout, "%s [%s%s\033[0m] %s\n",
			timestamp, levelColors[level], levelNames[level], msg)
	}

	if l.file == nil {
		return
	}

	n, err := io.WriteString(l.file, fmt.Sprintf("%s [%s] %s\n", timestamp, levelNames[level], msg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "write log failed: %v\n", err)
		return
	}
	l.currentSize += int64(n)

	if l.currentSize >= l.maxSize {
		l.rotate()
	}
}

// rotate renames the current log file with a timestamp suffix and starts a
// fresh one. Caller holds the mutex.
func (l *Logger) rotate() {
	l.file.Close()

	ext := filepath.Ext(l.filePath)
	name := l.filePath[:len(l.filePath)-len(ext)]
	backupPath := fmt.Sprintf("%s.%s%s", name, time.Now().Format("20060102-150405"), ext)
	os.Rename(l.filePath, backupPath)

	l.cleanOldBackups(name, ext)

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create new log file failed: %v\n", err)
		l.file = nil
		return
	}
	l.file = file
	l.currentSize = 0
}

// cleanOldBackups removes the oldest rotated files beyond maxBackups
func (l *Logger) cleanOldBackups(name, ext string) {
	matches, err := filepath.Glob(name + ".*" + ext)
	if err != nil || len(matches) <= l.maxBackups {
		return
	}

	sort.Slice(matches, func(i, j int) bool {
		ii, ierr := os.Stat(matches[i])
		ji, jerr := os.Stat(matches[j])
		if ierr != nil || jerr != nil {
			return false
		}
		return ii.ModTime().Before(ji.ModTime())
	})

	for _, old := range matches[:len(matches)-l.maxBackups] {
		os.Remove(old)
	}
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs info level messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs error level messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}
