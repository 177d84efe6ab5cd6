package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the default logger writing to stdout
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter initializes the default logger writing to out.
// Production output is JSON, anything else gets the console writer.
func InitWithWriter(out io.Writer) {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	var output io.Writer = out
	if os.Getenv("SAILINGS_ENVIRONMENT") != "production" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	Default = &Logger{logger: zerolog.New(output).With().Timestamp().Logger()}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("SAILINGS_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func ensure() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// ForExtractor creates a logger for a platform extractor
func ForExtractor(name string) *Logger {
	return ensure().WithField("extractor", name)
}

// ForTarget creates a logger scoped to one scrape target
func ForTarget(targetID, url string) *Logger {
	return ForWorker().WithFields(Fields{"target": targetID, "url": url})
}

// ForWorker creates a logger for the orchestrator
func ForWorker() *Logger {
	return ensure().WithField("component", "worker")
}

// ForDiscovery creates a logger for booking-surface discovery
func ForDiscovery() *Logger {
	return ensure().WithField("component", "discovery")
}

// ForStore creates a logger for the store
func ForStore() *Logger {
	return ensure().WithField("component", "store")
}

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger {
	return ensure().WithField("component", "publisher")
}

// LogError is a convenience method for logging errors with context
func LogError(component string, err error, format string, v ...interface{}) {
	ensure().Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}
