package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"json stdout", Config{Level: "debug", Format: "json", Output: "stdout"}, false},
		{"text stderr", Config{Level: "info", Format: "text", Output: "stderr"}, false},
		{"discard", Config{Level: "warn", Format: "text", Output: "discard"}, false},
		{"file in nested dir", Config{Level: "error", Format: "json", Output: filepath.Join(tmp, "logs", "bot.log")}, false},
		{"invalid level", Config{Level: "verbose", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewWithWriter(buf, "warn", "json")
	require.NoError(t, err)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
}

func TestLogger_ErrorAddsErrorField(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewWithWriter(buf, "debug", "json")
	require.NoError(t, err)

	log.ErrorCtx(context.Background(), "send failed", errors.New("boom"), Field{Key: "event", Value: "standup"})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "send failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, "standup", record["event"])
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewWithWriter(buf, "info", "json")
	require.NoError(t, err)

	log.With(Field{Key: "component", Value: "reminder"}).Info("tick")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reminder", record["component"])
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info("nothing")
		log.Error("nothing", errors.New("x"))
	})
}
