package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("sessionctl", "PROD", "debug", &buf)

	logger.Debug().Str("phase", "active").Msg("state changed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "sessionctl", line["app"])
	require.Equal(t, "active", line["phase"])
	require.Equal(t, "debug", line["level"])
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("sessionctl", "PROD", "chatty", &buf)

	logger.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	logger.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}
