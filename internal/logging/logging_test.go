package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", true)

	logger.Debug().Str("key", "tasks/t1/a.pdf").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "tasks/t1/a.pdf", line["key"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "loud", true)

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	logger.Debug().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNewLogger_DevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", false)

	logger.Info().Str("key", "tasks/t1/a.pdf").Msg("hello")

	assert.False(t, json.Valid(buf.Bytes()))
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "tasks/t1/a.pdf")
}
