package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Level(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	require.NoError(t, Init(Options{Level: "WARN", JSON: true}))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	require.NoError(t, Init(Options{}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	assert.Error(t, Init(Options{Level: "loud"}))
}

func TestInit_File(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	path := filepath.Join(t.TempDir(), "lens.log")
	require.NoError(t, Init(Options{Level: "debug", File: path, JSON: true}))

	Infof("loaded %d rows", 42)
	l := With("request_id", "abc")
	l.Info().Msg("handled")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"loaded 42 rows"`)
	assert.Contains(t, string(data), `"request_id":"abc"`)
}
