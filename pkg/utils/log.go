// Package utils provides a small file-backed logger, used by the
// cmd/aplrun driver (the runtime packages under pkg/ do not log).
//
// It is intentionally not a structured-logging framework: a single
// mutex-guarded file handle, `key=value` varargs, and four level helpers.
package utils

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var (
	logFile     *os.File
	logMutex    sync.Mutex
	initialized bool
)

// InitLogger opens (creating if needed) a timestamped log file in the
// current directory. Safe to call more than once; only the first call
// takes effect.
func InitLogger() error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if initialized {
		return nil
	}

	filename := fmt.Sprintf("apl-%s.log", time.Now().Format("2006-01-02-15-04"))

	var err error
	logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	initialized = true
	line := fmt.Sprintf("[%s] INFO: logger initialized file=%s\n", time.Now().Format("2006-01-02 15:04:05"), filename)
	if _, err := logFile.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "%s", line)
	}
	return nil
}

// Info logs an informational message.
func Info(msg string, keyvals ...any) { log("INFO", msg, keyvals...) }

// Error logs an error message.
func Error(msg string, keyvals ...any) { log("ERROR", msg, keyvals...) }

// Debug logs a debug message.
func Debug(msg string, keyvals ...any) { log("DEBUG", msg, keyvals...) }

// Warn logs a warning message.
func Warn(msg string, keyvals ...any) { log("WARN", msg, keyvals...) }

func log(level, msg string, keyvals ...any) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile == nil {
		return
	}

	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 < len(keyvals) {
			line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
		}
	}
	line += "\n"

	if _, err := logFile.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "%s", line)
	}
}

// Close closes the log file, if open.
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
