package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/sailingworker/logger"
)

// LoggerInterface records per-target failures and progress messages
type LoggerInterface interface {
	LogError(target string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends failures to a journal file and mirrors everything to zerolog
type Logger struct {
	mu        sync.Mutex
	errorFile string
	log       *logger.Logger
}

// NewLogger creates a new failure journal. An empty errorFile disables the file.
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
		log:       logger.ForWorker(),
	}
}

// LogError logs an error to the journal with target label and timestamp
func (l *Logger) LogError(target string, err error) {
	l.log.Error().Str("target", target).Err(err).Msg("target failed")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		l.log.Warn().Err(fileErr).Str("file", l.errorFile).Msg("cannot open error journal")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, target, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}
