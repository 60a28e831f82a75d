package logger

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))

	// Unknown or empty levels fall back to info.
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}

func TestOutputSelection(t *testing.T) {
	assert.Equal(t, os.Stdout, output(Config{}))

	w, ok := output(Config{Pretty: true}).(zerolog.ConsoleWriter)
	require.True(t, ok)
	assert.Equal(t, defaultConsoleTimeFormat, w.TimeFormat)

	w, ok = output(Config{Pretty: true, TimeFormat: "2006-01-02 15:04:05"}).(zerolog.ConsoleWriter)
	require.True(t, ok)
	assert.Equal(t, "2006-01-02 15:04:05", w.TimeFormat)
}

func TestNewRespectsLevel(t *testing.T) {
	New(Config{Level: "error"})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	New(Config{Level: "info"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
