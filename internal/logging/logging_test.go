package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New("debug", "json", &buf)
		logger.Debug().Str("entry", "draw").Int("calls", 3).Msg("pass finished")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "pass finished", line["message"])
		assert.Equal(t, "draw", line["entry"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New("warn", "json", &buf)
		logger.Info().Msg("hidden")
		assert.Zero(t, buf.Len())
		logger.Warn().Msg("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("unknown level is info", func(t *testing.T) {
		assert.Equal(t, log.InfoLevel, parseLevel("chatty"))
		assert.Equal(t, log.WarnLevel, parseLevel("WARNING"))
	})
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.Error().Msg("dropped")
	})
}
