package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/trivia-director/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "debug", Out: &buf})

	logger.Info().Str("user", "alice").Msg("session created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "session created", line["message"])
	require.Equal(t, "alice", line["user"])
	require.Equal(t, "info", line["level"])
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Out: &buf})

	logger.Info().Msg("dropped")
	require.Zero(t, buf.Len())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trivia.log")
	logger := logging.New(logging.Options{File: path, Out: &bytes.Buffer{}})

	logger.Warn().Msg("rotating file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "rotating file")
}
