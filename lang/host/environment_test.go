package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/lang/host"
	"github.com/wisplang/wisp/lang/value"
)

func TestDefineIsImmutableByDefault(t *testing.T) {
	env := host.NewEnvironment()
	require.NoError(t, env.Define("pi", value.Real(3.14)))
	v, ok := env.Env().GetString("pi")
	require.True(t, ok)
	assert.Equal(t, value.Real(3.14), v)
	assert.False(t, env.IsMutable("pi"))
}

func TestDefineMutableMarksMeta(t *testing.T) {
	env := host.NewEnvironment()
	require.NoError(t, env.DefineMutable("counter", value.Int(0)))
	assert.True(t, env.IsMutable("counter"))
}

func TestDefineNil(t *testing.T) {
	env := host.NewEnvironment()
	require.NoError(t, env.DefineNil("undefined-feature"))
	_, ok := env.Nils().GetString("undefined-feature")
	assert.True(t, ok)
	_, ok = env.Env().GetString("undefined-feature")
	assert.False(t, ok)
}

func TestIsMutableUnknownNameIsFalse(t *testing.T) {
	env := host.NewEnvironment()
	assert.False(t, env.IsMutable("nope"))
}

func TestNewStandardEnvironmentBindsProtocolNames(t *testing.T) {
	env := host.NewStandardEnvironment()
	for _, name := range host.StandardProtocolNames {
		_, ok := env.Env().GetString(name)
		assert.True(t, ok, "expected %s to be bound", name)
	}
}
