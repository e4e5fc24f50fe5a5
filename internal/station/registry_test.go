package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryParams() Params {
	return Params{
		ChannelID: "voice-1",
		StationID: "station-1",
		Transport: &fakeTransport{conn: newFakeConn()},
		Provider:  &fakeProvider{},
		Policy:    testPolicy(),
	}
}

func TestRegistryRejectsDuplicateKey(t *testing.T) {
	reg := NewRegistry()

	first, err := reg.GetOrCreate("guild-1", registryParams())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := reg.GetOrCreate("guild-1", registryParams())
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Nil(t, second)

	// a different key is independent
	other, err := reg.GetOrCreate("guild-2", registryParams())
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryGetAndRemove(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get("guild-1")
	assert.False(t, ok)

	created, err := reg.GetOrCreate("guild-1", registryParams())
	require.NoError(t, err)

	got, ok := reg.Get("guild-1")
	require.True(t, ok)
	assert.Same(t, created, got)

	reg.Remove("guild-1")
	_, ok = reg.Get("guild-1")
	assert.False(t, ok)

	// removing an absent key is a no-op
	reg.Remove("guild-1")

	// the key is free again
	_, err = reg.GetOrCreate("guild-1", registryParams())
	require.NoError(t, err)
}

func TestRegistryStopReleasesKey(t *testing.T) {
	reg := NewRegistry()
	sess, err := reg.GetOrCreate("guild-1", registryParams())
	require.NoError(t, err)

	sess.Stop()

	_, ok := reg.Get("guild-1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}
