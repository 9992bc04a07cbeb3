// Package logging wraps a sugared zap logger with key/value helpers.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	s *zap.SugaredLogger
}

func New(level string) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	z, err := cfg.Build()
	if err != nil {
		z, _ = zap.NewProduction()
	}

	return &Logger{s: z.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger, e.g. an observer core in tests.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{s: z.Sugar()}
}

func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{s: l.s.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...any) {
	l.s.Debugw(msg, keyvals...)
}

func (l *Logger) Info(msg string, keyvals ...any) {
	l.s.Infow(msg, keyvals...)
}

func (l *Logger) Warn(msg string, keyvals ...any) {
	l.s.Warnw(msg, keyvals...)
}

func (l *Logger) Error(msg string, keyvals ...any) {
	l.s.Errorw(msg, keyvals...)
}

func (l *Logger) Sync() error {
	return l.s.Sync()
}

// Badger adapts the logger to badger's printf-style Logger interface.
func (l *Logger) Badger() *BadgerLogger {
	return &BadgerLogger{l: l.With("component", "badger")}
}

// BadgerLogger satisfies badger.Logger.
type BadgerLogger struct {
	l *Logger
}

func (b *BadgerLogger) Errorf(msg string, items ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (b *BadgerLogger) Warningf(msg string, items ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (b *BadgerLogger) Infof(msg string, items ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (b *BadgerLogger) Debugf(msg string, items ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
