package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig defines the configuration for the logger.
type LoggerConfig struct {
	Level      string // debug, info, warn or error
	FilePath   string // rotated JSON log; empty logs to the console only
	MaxSize    int    // MB before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Console    bool      // also log to Output
	Output     io.Writer // console writer, os.Stdout when nil
}

// WithVerbosity applies the --verbose and --quiet switches. Quiet wins.
func (c LoggerConfig) WithVerbosity(verbose, quiet bool) LoggerConfig {
	switch {
	case quiet:
		c.Level = "error"
		c.Console = false
	case verbose:
		c.Level = "debug"
	}
	return c
}

// NewLogger returns a JSON logger writing to a rotating file, the console, or both.
func NewLogger(config LoggerConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	out, err := config.output()
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(jsonFormatter())
	logger.SetOutput(out)
	return logger, nil
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
			logrus.FieldKeyFunc:  "function",
		},
	}
}

// output builds the log destination. The console is always used when no file is set.
func (c LoggerConfig) output() (io.Writer, error) {
	var writers []io.Writer
	if c.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.FilePath), 0755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
			Compress:   c.Compress,
		})
	}
	if c.Console || c.FilePath == "" {
		console := c.Output
		if console == nil {
			console = os.Stdout
		}
		writers = append(writers, console)
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	routeKey     contextKey = "route"
)

// ContextWithRequest stores the id and route of an HTTP request in ctx.
func ContextWithRequest(ctx context.Context, requestID, route string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, routeKey, route)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext returns an entry of logger carrying the request fields found in ctx.
func FromContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	fields := logrus.Fields{}
	if id := RequestID(ctx); id != "" {
		fields[string(requestIDKey)] = id
	}
	if route, ok := ctx.Value(routeKey).(string); ok && route != "" {
		fields[string(routeKey)] = route
	}
	return logger.WithContext(ctx).WithFields(fields)
}

// WithFile returns a logger entry with the specified file context.
func WithFile(logger *logrus.Logger, filePath string) *logrus.Entry {
	return logger.WithField("file", filePath)
}

// WithOperation returns a logger entry with the specified operation context.
func WithOperation(logger *logrus.Logger, operation string) *logrus.Entry {
	return logger.WithField("operation", operation)
}
