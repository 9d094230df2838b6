package bookstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Has("Moby Dick"))

	require.NoError(t, store.Write("Moby Dick", "Call me Ishmael."))
	assert.True(t, store.Has("Moby Dick"))

	text, err := store.Read("Moby Dick")
	require.NoError(t, err)
	assert.Equal(t, "Call me Ishmael.", text)
}

// Title variants that normalize identically must map to the same file,
// or downloads silently repeat.
func TestStoreKeysByCanonicalTitle(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("A Christmas Carol.", "Marley was dead."))
	assert.True(t, store.Has("a christmas carol"))

	text, err := store.Read("A  CHRISTMAS  CAROL")
	require.NoError(t, err)
	assert.Equal(t, "Marley was dead.", text)

	assert.Equal(t, "a_christmas_carol.txt", filepath.Base(store.Path("A Christmas Carol.")))
}

func TestReadMissing(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("Never Downloaded")
	assert.Error(t, err)
}
