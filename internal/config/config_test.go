package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("WISPC_RECURSION_GUARD")
	os.Unsetenv("WISPC_DEBUG")
	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, c.RecursionGuard)
	assert.False(t, c.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WISPC_RECURSION_GUARD", "500")
	t.Setenv("WISPC_DEBUG", "true")
	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 500, c.RecursionGuard)
	assert.True(t, c.Debug)
}

func TestValidateKeys(t *testing.T) {
	unknown := config.ValidateKeys([]string{"WISPC_RECURSION_GUARD", "WISPC_RECURSSION_GUARD"})
	assert.Equal(t, []string{"WISPC_RECURSSION_GUARD"}, unknown)
}

func TestValidateKeysAllRecognized(t *testing.T) {
	unknown := config.ValidateKeys([]string{"WISPC_RECURSION_GUARD", "WISPC_DEBUG"})
	assert.Empty(t, unknown)
}
