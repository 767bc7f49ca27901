package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Out: &buf})

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Str("account", "bank").Msg("shown")
	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "bank", event["account"])
	assert.Equal(t, "shown", event["message"])
	assert.Contains(t, event, "time")
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Pretty: true, Out: &buf})
	l.Debug().Msg("console")
	assert.Contains(t, buf.String(), "console")
	assert.NotContains(t, buf.String(), "{")
}

func TestSetGlobalLogger(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	SetGlobalLogger(New(Config{Out: &buf}))
	log.Info().Msg("global")
	assert.Contains(t, buf.String(), "global")
}
