package account

import (
	"log/slog"
	"os"
)

type defLogger struct {
	l *slog.Logger
}

func newDefLogger() defLogger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return defLogger{l: slog.New(h).With("module", "account")}
}

func (d defLogger) Debug(msg string, args ...any) {
	d.l.Debug(msg, args...)
}

func (d defLogger) Info(msg string, args ...any) {
	d.l.Info(msg, args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.l.Warn(msg, args...)
}

func (d defLogger) Error(msg string, args ...any) {
	d.l.Error(msg, args...)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return newDefLogger()
	}
	return l
}
