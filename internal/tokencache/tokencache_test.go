package tokencache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingReturnsNotFound(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer cache.Close()

	_, found, err := cache.Get("dev")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer cache.Close()

	entry := Entry{Token: "abc123", ObtainedAt: time.Now(), ExpiresIn: time.Hour}
	require.NoError(t, cache.Put("dev", entry))

	got, found, err := cache.Get("dev")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Token, got.Token)
	assert.Equal(t, entry.ExpiresIn, got.ExpiresIn)
}

func TestEntryFreshness(t *testing.T) {
	fresh := Entry{ObtainedAt: time.Now(), ExpiresIn: time.Hour}
	assert.True(t, fresh.Fresh(0.8))

	stale := Entry{ObtainedAt: time.Now().Add(-55 * time.Minute), ExpiresIn: time.Hour}
	assert.False(t, stale.Fresh(0.8))

	nonExpiring := Entry{ObtainedAt: time.Now().Add(-24 * time.Hour)}
	assert.True(t, nonExpiring.Fresh(0.8))
}
