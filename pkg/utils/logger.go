package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync" // For thread-safe initialization

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger represents a workspace logger. Messages go to a rotating log file so
// the console stays reserved for user-facing output.
type Logger struct {
	logger   *log.Logger
	verbose  bool // Echo process steps to stdout when set
	jsonMode bool
	runID    string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// GetLogger returns the singleton instance of Logger.
// It initializes the logger with a file handler that rotates logs.
// The verbose parameter controls console echoing of process steps and
// can be overridden on subsequent calls to GetLogger.
func GetLogger(verbose bool) *Logger {
	once.Do(func() {
		logFile := &lumberjack.Logger{
			Filename:   ".swarm/workspace.log",
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = &Logger{
			logger: log.New(logFile, "", log.LstdFlags),
		}
	})
	// Always update verbose, allowing it to be overridden
	globalLogger.verbose = verbose
	if os.Getenv("SWARM_JSON_LOGS") == "1" {
		globalLogger.jsonMode = true
	}
	if id := os.Getenv("SWARM_RUN_ID"); id != "" {
		globalLogger.runID = id
	}
	return globalLogger
}

// Close closes the logger resources.
func (w *Logger) Close() error {
	if logFile, ok := w.logger.Writer().(*lumberjack.Logger); ok {
		return logFile.Close()
	}
	return nil
}

// LogProcessStep logs the current step in a process and echoes it to stdout
// in verbose mode.
func (w *Logger) LogProcessStep(step string) {
	w.logger.Printf("Process Step: %s", step)
	if w.verbose {
		fmt.Println(step)
	}
}

// LogWorkspaceOperation logs workspace operations. These messages go only to the log file.
func (w *Logger) LogWorkspaceOperation(operation, details string) {
	w.logger.Printf("Operation: %s, Details: %s", operation, details)
}

// Log logs a general message only to the log file.
func (w *Logger) Log(message string) {
	if w.jsonMode {
		_ = json.NewEncoder(w.logger.Writer()).Encode(map[string]any{"level": "info", "msg": message, "run_id": w.runID})
		return
	}
	w.logger.Print(message)
}

// Logf logs a formatted general message only to the log file.
func (w *Logger) Logf(format string, v ...interface{}) {
	if w.jsonMode {
		w.Log(fmt.Sprintf(format, v...))
		return
	}
	w.logger.Printf(format, v...)
}

func (w *Logger) LogError(err error) {
	if w.jsonMode {
		_ = json.NewEncoder(w.logger.Writer()).Encode(map[string]any{"level": "error", "error": err.Error(), "run_id": w.runID})
		return
	}
	w.logger.Printf("Error: %s", err)
}

// IsVerbose reports whether verbose console echoing is enabled.
func (w *Logger) IsVerbose() bool {
	return w.verbose
}
