package logger

import (
	"testing"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(config.Config{Environment: "production", LogLevel: "shouting"})
	require.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New(config.Config{Environment: "production"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(0), "info level enabled")
	assert.False(t, log.Core().Enabled(-1), "debug level disabled")
}

func TestNewDevelopmentEnablesDebug(t *testing.T) {
	log, err := New(config.Config{Environment: "development", LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}
