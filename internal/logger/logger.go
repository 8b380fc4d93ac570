// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides the process-wide structured logger.
//
// Records are JSON lines with datetime, level and message fields. The TUI
// owns stdout, so interactive sessions log to a file under the config
// directory while plain CLI commands log to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger is the minimal logging surface used across the application.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields carries structured context for a single record.
type Fields map[string]any

// EnvLevel is the environment variable consulted by InitFromEnv.
const EnvLevel = "FUSIONLOOM_LOG_LEVEL"

// Log is the global logger. It works at info level before Init is called.
var Log Logger = New("info", os.Stderr)

// New builds a gookit/slog logger writing JSON records at or above level.
// Unknown level names fall back to info.
func New(level string, out io.Writer) Logger {
	return newSlog(level, out)
}

func newSlog(level string, out io.Writer) *slog.Logger {
	logLevel := slog.LevelByName(normalizeLevel(level))

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewIOWriterHandler(out, levels)
	h.SetFormatter(slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
			slog.FieldKeyData,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
			slog.FieldKeyData:     "fields",
		}
		f.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}))

	return slog.NewWithHandlers(h)
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "debug", "info", "warn", "error":
		return level
	case "warning":
		return "warn"
	default:
		return "info"
	}
}

// Init replaces the global logger.
func Init(level string, out io.Writer) {
	Log = New(level, out)
}

// InitFromEnv initializes the global logger from EnvLevel, falling back to
// fallback when the variable is empty.
func InitFromEnv(fallback string, out io.Writer) {
	level := os.Getenv(EnvLevel)
	if level == "" {
		level = fallback
	}
	Init(level, out)
}

// InitFile points the global logger at an append-only log file. The caller
// closes the returned file on shutdown.
func InitFile(level, path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	Init(level, f)
	return f, nil
}

// Discard silences the global logger. Tests use it to keep output clean.
func Discard() {
	Log = New("error", io.Discard)
}

// InfoWithFields logs msg with structured fields attached.
func InfoWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Info(msg)
		return
	}
	Log.Info(msg)
}

// DebugWithFields logs msg at debug level with structured fields attached.
func DebugWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Debug(msg)
		return
	}
	Log.Debug(msg)
}

// WarnWithFields logs msg at warn level with structured fields attached.
func WarnWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Warn(msg)
		return
	}
	Log.Warn(msg)
}

// ErrorWithFields logs msg at error level with structured fields attached.
func ErrorWithFields(msg string, fields Fields) {
	if lg, ok := Log.(*slog.Logger); ok {
		lg.WithFields(slog.M(fields)).Error(msg)
		return
	}
	Log.Error(msg)
}
