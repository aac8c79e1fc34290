package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withStateHome redirects xdg state paths to a temp dir for one test
func withStateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	xdg.Reload()

	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	return dir
}

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{9, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		withStateHome(t)
		SetupLogger(tt.verbosity, nil)
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "verbosity %d", tt.verbosity)
	}
}

func TestSetupLoggerWritesConsoleAndFile(t *testing.T) {
	dir := withStateHome(t)
	var console bytes.Buffer

	SetupLogger(1, &console)
	log.Info().Str("activity", "build").Msg("hello from test")

	assert.Contains(t, console.String(), "hello from test")

	data, err := os.ReadFile(filepath.Join(dir, "beout", "beout.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activity":"build"`)
}

func TestGetLogger(t *testing.T) {
	withStateHome(t)
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	l := GetLogger("engine")
	l.Info().Msg("ping")
	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestLogOperationStart(t *testing.T) {
	withStateHome(t)
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(&buf)

	done := LogOperationStart(logger, "paint")
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Operation started")
	assert.Contains(t, lines[1], "Operation completed")
	assert.Contains(t, lines[1], `"duration"`)
}
