package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across the service.
// Values are alternating key/value pairs.
type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Fatal(err error, values ...any)
}

func init() {
	if _, err := NewLogger(zap.NewDevelopmentConfig()); err != nil {
		panic(err)
	}
}

// Init rebuilds the global logger from the configured level and format.
// Format "json" selects the production encoder; anything else uses the
// human readable development encoder.
func Init(level, format string) error {
	var config zap.Config
	if strings.EqualFold(format, "json") {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	_, err = NewLogger(config)
	return err
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Fatal(err error, values ...any) {
	GetLogger().Fatal(err, values...)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	_ = GetLogger().log.Sync()
}
