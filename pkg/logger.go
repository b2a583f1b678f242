package advlab

import (
	"log/slog"
)

type LoggerInterface interface {
	Info(message string, module string)
	Warn(message string, module string)
	Error(string)
}

// Logger sends informational messages to InfoLog and warnings/errors to
// ErrorLog. Both are usually built in the binaries' init functions.
type Logger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l Logger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l Logger) Warn(message string, module string) {
	l.ErrorLog.Warn(message, "module", module)
}

func (l Logger) Error(message string) {
	l.ErrorLog.Error(message)
}

type silentLogger struct{}

func (silentLogger) Info(string, string) {}
func (silentLogger) Warn(string, string) {}
func (silentLogger) Error(string)        {}

var logger LoggerInterface = silentLogger{}

func SetLogger(l LoggerInterface) {
	if l == nil {
		logger = silentLogger{}
		return
	}
	logger = l
}
