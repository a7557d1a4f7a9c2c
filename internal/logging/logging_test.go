package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Mohsinsiddi/vaultctl/internal/logging"
)

func TestNewLevels(t *testing.T) {
	log, err := logging.New(false, "")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = logging.New(true, logging.FormatJSON)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(false, "xml")
	assert.ErrorContains(t, err, "xml")
}
