package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/lang/host"
)

func TestLoadHostProtocol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.yaml")
	const doc = `
mutable:
  - counter
constants:
  - pi
nil:
  - undefined-feature
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	proto, err := config.LoadHostProtocol(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, proto.Mutable)
	assert.Equal(t, []string{"pi"}, proto.Constants)
	assert.Equal(t, []string{"undefined-feature"}, proto.Nil)
}

func TestHostProtocolApply(t *testing.T) {
	proto := &config.HostProtocol{
		Mutable:   []string{"counter"},
		Constants: []string{"pi"},
		Nil:       []string{"undefined-feature"},
	}
	env := host.NewEnvironment()
	require.NoError(t, proto.Apply(env))

	assert.True(t, env.IsMutable("counter"))
	assert.False(t, env.IsMutable("pi"))

	_, ok := env.Env().GetString("pi")
	assert.True(t, ok)

	_, ok = env.Nils().GetString("undefined-feature")
	assert.True(t, ok)
}

func TestLoadHostProtocolMissingFile(t *testing.T) {
	_, err := config.LoadHostProtocol(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
