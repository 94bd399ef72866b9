// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger holds the process logger of the issuance tool.
//
// Records go through toolhive-core/logging. When [Initialize] is given a
// [Ring], each record is also kept in memory so operators can read recent
// server logs through the admin API.
package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-core/env"
	"github.com/stacklok/toolhive-core/logging"
)

// EnvUnstructuredLogs selects text (true, the default) or JSON (false) output.
const EnvUnstructuredLogs = "UNSTRUCTURED_LOGS"

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(logging.New())
}

// Get returns the process logger for components that take a *slog.Logger.
func Get() *slog.Logger {
	return current.Load()
}

// Initialize installs the process logger. ring may be nil.
func Initialize(ring *Ring) {
	InitializeWithEnv(&env.OSReader{}, ring)
}

// InitializeWithEnv is Initialize reading the environment through envReader.
func InitializeWithEnv(envReader env.Reader, ring *Ring) {
	opts := make([]logging.Option, 0, 2)
	if textOutput(envReader) {
		opts = append(opts, logging.WithFormat(logging.FormatText))
	}
	if viper.GetBool("debug") {
		opts = append(opts, logging.WithLevel(slog.LevelDebug))
	}

	l := logging.New(opts...)
	if ring != nil {
		l = slog.New(NewTeeHandler(l.Handler(), ring))
	}
	current.Store(l)
}

func textOutput(envReader env.Reader) bool {
	v, err := strconv.ParseBool(envReader.Getenv(EnvUnstructuredLogs))
	if err != nil {
		return true
	}
	return v
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) { Get().Debug(fmt.Sprintf(format, args...)) }

// Debugw logs a debug message with key-value pairs.
func Debugw(msg string, kv ...any) { Get().Debug(msg, kv...) }

// Info logs msg at info level.
func Info(msg string) { Get().Info(msg) }

// Infof logs a formatted info message.
func Infof(format string, args ...any) { Get().Info(fmt.Sprintf(format, args...)) }

// Infow logs an info message with key-value pairs.
func Infow(msg string, kv ...any) { Get().Info(msg, kv...) }

// Warn logs msg at warn level.
func Warn(msg string) { Get().Warn(msg) }

// Warnf logs a formatted warning.
func Warnf(format string, args ...any) { Get().Warn(fmt.Sprintf(format, args...)) }

// Warnw logs a warning with key-value pairs.
func Warnw(msg string, kv ...any) { Get().Warn(msg, kv...) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) { Get().Error(fmt.Sprintf(format, args...)) }

// Errorw logs an error message with key-value pairs.
func Errorw(msg string, kv ...any) { Get().Error(msg, kv...) }
