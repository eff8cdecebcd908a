package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestAgentLogger_KeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})
	l = l.WithComponent("engine").WithAgent("a-1").WithContext("run", 7)

	l.Debug("inst.fire", "rule", "propose", "preferences", 2)

	m := decode(t, &buf)
	assert.Equal(t, "inst.fire", m["msg"])
	assert.Equal(t, "engine", m["component"])
	assert.Equal(t, "a-1", m["agent_id"])
	assert.Equal(t, float64(7), m["run"])
	assert.Equal(t, "propose", m["rule"])
	assert.Equal(t, float64(2), m["preferences"])
}

func TestAgentLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Equal(t, "shown", decode(t, &buf)["msg"])
}

func TestAgentLogger_CloneIsolation(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})
	_ = base.WithContext("k", "v")

	base.Info("x")
	_, ok := decode(t, &buf)["k"]
	assert.False(t, ok)
}

func TestAgentLogger_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})

	l.ErrorWithStack(errors.New("boom"), "engine.panic", "rule", "r1")

	m := decode(t, &buf)
	assert.Equal(t, "boom", m["error"])
	assert.Equal(t, "r1", m["rule"])
	assert.Contains(t, m["stack_trace"], "goroutine")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() { l.Error("nothing", "k", 1) })
}
