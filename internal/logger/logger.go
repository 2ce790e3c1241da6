// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

// Package logger provides a thin wrapper around zerolog.Logger with the
// constructors and context helpers used throughout the sync engine.
//
// The Logger type embeds zerolog.Logger so all standard zerolog methods
// (Debug, Info, Warn, Error, etc.) are available directly on *Logger.
// Components receive a *Logger at construction and derive child loggers with
// their own fields.
package logger

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper around zerolog.Logger. Embedding exposes the full
// zerolog API while leaving room for engine-specific helpers.
type Logger struct {
	zerolog.Logger
}

// New constructs a *Logger for the given role label (e.g. "sync", "store").
//
// The logger emits JSON to os.Stdout with a "role" field, a timestamp, and a
// "func" caller field holding the fully-qualified function name.
func New(role string) *Logger {
	return &Logger{newZerolog(os.Stdout, role)}
}

// NewFileLogger constructs a *Logger writing to a rotating log file at path.
// Mobile hosts rarely expose a useful stdout, so on-device logs go to a file
// capped by lumberjack rotation. An empty path falls back to stdout.
func NewFileLogger(role, path string) *Logger {
	if path == "" {
		return New(role)
	}

	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return &Logger{newZerolog(out, role)}
}

func newZerolog(out io.Writer, role string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	return zerolog.New(out).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()
}

// Nop returns a *Logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// GetChildLogger returns a new *Logger inheriting all fields of the receiver.
// The child can be enriched with additional fields without affecting the
// parent.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// FromContext extracts the zerolog.Logger stored in ctx by zerolog's log.Ctx
// helper. If none was attached, zerolog returns its global logger, so the
// result is never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
