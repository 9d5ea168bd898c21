// Package logger builds the zap loggers used across the scanner. Logs go
// to stderr so that report output on stdout stays machine-readable.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level.
type LogLevel string

// LogFormat represents the logging format.
type LogFormat string

const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	// OffLevel silences everything.
	OffLevel LogLevel = "OFF"

	// FormatConsole indicates human-readable console format.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON indicates structured JSON format.
	FormatJSON LogFormat = "JSON"
)

// Environment overrides, applied by FromEnv.
const (
	EnvLevel  = "UBS_LOG_LEVEL"
	EnvFormat = "UBS_LOG_FORMAT"
)

// Component names passed to For and zap.Logger.Named.
const (
	ComponentCLI         = "cli"
	ComponentEngine      = "engine"
	ComponentDriver      = "driver"
	ComponentHistory     = "history"
	ComponentConformance = "conformance"
)

func getLogLevel(level LogLevel) (zapcore.Level, bool) {
	switch strings.ToUpper(string(level)) {
	case string(DebugLevel):
		return zapcore.DebugLevel, true
	case string(InfoLevel), "":
		return zapcore.InfoLevel, true
	case string(WarnLevel), "WARNING":
		return zapcore.WarnLevel, true
	case string(ErrorLevel):
		return zapcore.ErrorLevel, true
	case string(OffLevel):
		return zapcore.FatalLevel + 1, true
	}
	return zapcore.WarnLevel, false
}

// ParseFormat accepts console or json, case-insensitively.
func ParseFormat(s string) (LogFormat, bool) {
	switch f := LogFormat(strings.ToUpper(s)); f {
	case FormatConsole, FormatJSON:
		return f, true
	case "":
		return FormatConsole, true
	}
	return FormatConsole, false
}

// ValidLevel reports whether level is understood by New.
func ValidLevel(level string) bool {
	_, ok := getLogLevel(LogLevel(level))
	return ok
}

// FromEnv returns level and format with the environment overrides applied.
func FromEnv(level string, format LogFormat) (string, LogFormat) {
	if v := os.Getenv(EnvLevel); v != "" {
		level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		if f, ok := ParseFormat(v); ok {
			format = f
		}
	}
	return level, format
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

// New creates a logger writing to w. Unknown levels fall back to WARN.
func New(logLevel string, logFormat LogFormat, w io.Writer) *zap.Logger {
	level, _ := getLogLevel(LogLevel(logLevel))

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if logFormat == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = timeEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core)
}

// Default builds the stderr logger for level and format after applying
// the environment overrides, and installs it as the zap global.
func Default(level string, format LogFormat) *zap.Logger {
	level, format = FromEnv(level, format)
	l := New(level, format, os.Stderr)
	zap.ReplaceGlobals(l)
	return l
}

// For creates a named sugared logger for a component from the global logger.
func For(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}
