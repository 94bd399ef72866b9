// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-core/env/mocks"
	"github.com/stacklok/toolhive-core/logging"
)

func TestTextOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"Default Case", "", true},
		{"Explicitly True", "true", true},
		{"Explicitly False", "false", false},
		{"Invalid Value", "not-a-bool", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			mockEnv := mocks.NewMockReader(ctrl)
			mockEnv.EXPECT().Getenv(EnvUnstructuredLogs).Return(tt.envValue)

			assert.Equal(t, tt.expected, textOutput(mockEnv))
		})
	}
}

func swapLogger(t *testing.T, l *slog.Logger) {
	t.Helper()
	prev := current.Load()
	current.Store(l)
	t.Cleanup(func() { current.Store(prev) })
}

func TestLogLevels(t *testing.T) { //nolint:paralleltest // swaps the process logger
	tests := []struct {
		name     string
		logFn    func()
		contains string
	}{
		{"Debugf", func() { Debugf("debug %s", "formatted") }, "debug formatted"},
		{"Infow", func() { Infow("issued", "request_id", "abc") }, "issued"},
		{"Warnf", func() { Warnf("warn %s", "formatted") }, "warn formatted"},
		{"Errorw", func() { Errorw("error kv", "key", "val") }, "error kv"},
	}

	for _, tc := range tests { //nolint:paralleltest // swaps the process logger
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logging.New(
				logging.WithOutput(&buf),
				logging.WithLevel(slog.LevelDebug),
			)
			swapLogger(t, l)

			tc.logFn()

			assert.Contains(t, buf.String(), tc.contains)
		})
	}
}

func TestInitializeWithEnvMirrorsIntoRing(t *testing.T) { //nolint:paralleltest // swaps the process logger
	swapLogger(t, Get())

	ctrl := gomock.NewController(t)
	mockEnv := mocks.NewMockReader(ctrl)
	mockEnv.EXPECT().Getenv(EnvUnstructuredLogs).Return("false")

	ring := NewRing()
	t.Cleanup(func() { _ = ring.Close() })

	InitializeWithEnv(mockEnv, ring)

	Warnw("callback for unknown request", SessionIDKey, "sess-1", "state", "abc")

	entries := ring.Query(Filter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "sess-1", entries[0].SessionID)
	assert.Equal(t, "abc", entries[0].Attrs["state"])
}

func TestInitializeWithEnvWithoutRing(t *testing.T) { //nolint:paralleltest // swaps the process logger
	swapLogger(t, Get())

	ctrl := gomock.NewController(t)
	mockEnv := mocks.NewMockReader(ctrl)
	mockEnv.EXPECT().Getenv(EnvUnstructuredLogs).Return("")

	InitializeWithEnv(mockEnv, nil)

	got := Get()
	require.NotNil(t, got)
	_, isTee := got.Handler().(*TeeHandler)
	assert.False(t, isTee)
}
