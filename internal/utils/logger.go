package utils

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging surface used by handlers and middleware
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a slog.Logger to Logger
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

const loggerContextKey = "logger"

// ContextLogger stores a request scoped logger tagged with the request id
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestLogger := logger.With("request_id", c.GetString("request_id"))
		c.Set(loggerContextKey, requestLogger)
		c.Next()
	}
}

// GetLogger returns the request scoped logger, or fallback when absent
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if value, ok := c.Get(loggerContextKey); ok {
		if logger, ok := value.(Logger); ok {
			return logger
		}
	}
	return fallback
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", args...)
		case status >= 400:
			logger.Warn("HTTP request", args...)
		default:
			logger.Info("HTTP request", args...)
		}
	}
}
