package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.Logger
	mu  sync.RWMutex
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the logger with the specified configuration
func Init(development bool, level LogLevel) error {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())

	built, err := config.Build()
	if err != nil {
		return err
	}
	Set(built)
	return nil
}

// Set replaces the process logger. Tests use it with zaptest loggers.
func Set(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// Get returns the logger instance. Before Init it returns a no-op logger.
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// ForUser returns a logger tagged with the caller identity and chat session.
func ForUser(userID, sessionID string) *zap.Logger {
	l := Get().With(zap.String("user_id", userID))
	if sessionID != "" {
		l = l.With(zap.String("session_id", sessionID))
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() error {
	return Get().Sync()
}
