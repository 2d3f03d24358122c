package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FormatPretty is accepted as an alias of the console format.
const FormatPretty = "pretty"

// Logger wraps zerolog.Logger with additional context.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init initializes the global logger from config.
func Init(cfg *Config) {
	cfg.ApplyDefaults()
	name := cfg.ServiceName
	if name == "" {
		name = "default"
	}
	globalLogger = New(cfg, name)

	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if isConsole(cfg.Format) {
		log.Logger = newConsoleLogger(cfg, outputWriter(cfg.Output), name)
	}
}

// New creates a new logger instance with configuration.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, outputWriter(cfg.Output), serviceName)
}

// NewWithWriter creates a logger that writes to w instead of the configured output.
func NewWithWriter(cfg *Config, w io.Writer, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var zl zerolog.Logger
	if isConsole(cfg.Format) {
		zl = newConsoleLogger(cfg, w, serviceName)
	} else {
		zl = zerolog.New(w)
		if cfg.Timestamp {
			zl = zl.With().Timestamp().Logger()
		}
	}
	zl = zl.Level(level)

	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}

	return &Logger{
		logger:  zl,
		service: serviceName,
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    "console",
		Output:    "stderr",
		NoColor:   false,
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const buildIDKey contextKey = "build_id"

// ContextWithBuildID returns a context carrying the build id.
func ContextWithBuildID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, buildIDKey, id)
}

// BuildIDFromContext returns the build id stored in ctx, or "".
func BuildIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(buildIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext returns a logger enriched with the build id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := BuildIDFromContext(ctx)
	if id == "" {
		return l
	}
	return &Logger{
		logger:  l.logger.With().Str(FieldBuildID, id).Logger(),
		service: l.service,
	}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	event := l.logger.Fatal()
	addFields(event, fields...)
	event.Msg(msg)
}

// --- Global logger ---

var globalLogger *Logger

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating a default one if needed.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

// Package-level convenience functions delegate to the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Fatal(msg, fields...)
}

// WithContext returns a context-enriched logger from the global logger.
func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}

func isConsole(format string) bool {
	f := strings.ToLower(format)
	return f == "console" || f == FormatPretty
}

func outputWriter(output string) *os.File {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}

func newConsoleLogger(cfg *Config, w io.Writer, serviceName string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl := levelTag(strings.ToUpper(fmt.Sprintf("%s", i)), cfg.NoColor)
			if serviceName != "" && serviceName != "default" && len(serviceName) >= 3 {
				tag := strings.ToUpper(serviceName[:3])
				if !cfg.NoColor {
					return fmt.Sprintf("\033[34m[%s]\033[0m%s", tag, lvl)
				}
				return fmt.Sprintf("[%s]%s", tag, lvl)
			}
			return lvl
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}).With().Timestamp().Logger()
}

var levelColors = map[string]string{
	"DEBUG": "\033[36m",
	"INFO":  "\033[32m",
	"WARN":  "\033[33m",
	"ERROR": "\033[31m",
	"FATAL": "\033[35m",
}

var levelShort = map[string]string{
	"DEBUG": "DBG",
	"INFO":  "INF",
	"WARN":  "WRN",
	"ERROR": "ERR",
	"FATAL": "FTL",
}

func levelTag(lvl string, noColor bool) string {
	short, ok := levelShort[lvl]
	if !ok {
		return fmt.Sprintf("[%s]", lvl)
	}
	if noColor {
		return "[" + short + "]"
	}
	return levelColors[lvl] + "[" + short + "]\033[0m"
}
