package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var (
	fileLogger *log.Logger
	logFile    *os.File
	mu         sync.Mutex
	isSetup    bool
	debugMode  bool
)

// SetupLogger initializes the logger with the specified log file.
// Messages are always mirrored to stderr; the file is optional.
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}
	if logFilePath == "" {
		isSetup = true
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	fileLogger = log.New(logFile, "", log.LstdFlags)
	fileLogger.Printf("--- bacmotion log started at %s ---\n", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = enabled
}

// CloseLogger closes the log file.
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		fileLogger.Printf("--- bacmotion log closed at %s ---\n", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		isSetup = false
	}
}

func write(prefix, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	log.Printf(prefix+format, args...)
	if fileLogger != nil {
		fileLogger.Printf(prefix+format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	write("INFO: ", format, args...)
}

// Warning logs a warning message.
func Warning(format string, args ...interface{}) {
	write("WARNING: ", format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	write("ERROR: ", format, args...)
}

// Debug logs a message only when debug mode is enabled.
func Debug(format string, args ...interface{}) {
	mu.Lock()
	enabled := debugMode
	mu.Unlock()
	if enabled {
		write("DEBUG: ", format, args...)
	}
}
