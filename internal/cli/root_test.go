package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "get", "set", "remove", "clear", "get-all", "initialize"}, names)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	logger, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}

func TestDialAddr(t *testing.T) {
	assert.Equal(t, "localhost:9090", dialAddr(":9090"))
	assert.Equal(t, "10.0.0.1:9090", dialAddr("10.0.0.1:9090"))
	assert.Equal(t, "", dialAddr(""))
}
