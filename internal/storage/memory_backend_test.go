package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBackend(t *testing.T) {
	ClearAllInMemoryTranscripts()
	t.Cleanup(ClearAllInMemoryTranscripts)

	_, err := NewInMemoryBackend("")
	require.Error(t, err)

	a, err := NewInMemoryBackend("s1")
	require.NoError(t, err)
	b, err := NewInMemoryBackend("s1")
	require.NoError(t, err)
	other, err := NewInMemoryBackend("s2")
	require.NoError(t, err)

	require.NoError(t, a.AppendTranscript("k2", "user: hello"))

	data, err := b.ReadTranscript("k2")
	require.NoError(t, err)
	assert.Equal(t, "user: hello\n", string(data))

	// returned slices are copies
	data[0] = 'X'
	data, _ = a.ReadTranscript("k2")
	assert.Equal(t, "user: hello\n", string(data))

	data, err = other.ReadTranscript("k2")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, b.DeleteTranscripts())
	data, err = a.ReadTranscript("k2")
	require.NoError(t, err)
	assert.Nil(t, data)
	require.NoError(t, a.Close())
}

func TestGetBackend(t *testing.T) {
	assert.Equal(t, []string{"fs", "memory"}, BackendNames())

	b, err := GetBackend("memory", "s")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryBackend{}, b)

	_, err = GetBackend("nope", "s")
	assert.EqualError(t, err, "unknown storage backend: nope")
}
