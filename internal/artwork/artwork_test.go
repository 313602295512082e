package artwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetDownloadsOnceAndMemoizes(t *testing.T) {
	var hits int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake-jpeg-bytes")) //nolint:errcheck // Test server response.
	}))
	defer server.Close()

	cache, err := New(server.Client(), 8)
	require.NoError(t, err)
	defer cache.ReapAll() //nolint:errcheck // Test cleanup.

	ctx := context.Background()

	first, err := cache.Get(ctx, "album-1", server.URL+"/embed.jpg", server.URL+"/hires.jpg", true)
	require.NoError(t, err)
	assert.NotEmpty(t, first.EmbedPath)
	assert.NotEmpty(t, first.HiResPath)
	assert.Equal(t, 2, hits)

	second, err := cache.Get(ctx, "album-1", server.URL+"/embed.jpg", server.URL+"/hires.jpg", true)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 2, hits)
}

func TestCache_Get_SkipsHiResWhenNotRequested(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake")) //nolint:errcheck // Test server response.
	}))
	defer server.Close()

	cache, err := New(server.Client(), 8)
	require.NoError(t, err)
	defer cache.ReapAll() //nolint:errcheck // Test cleanup.

	set, err := cache.Get(context.Background(), "album-2", server.URL+"/embed.jpg", server.URL+"/hires.jpg", false)
	require.NoError(t, err)
	assert.NotEmpty(t, set.EmbedPath)
	assert.Empty(t, set.HiResPath)
}

func TestSanitizeID_ReplacesNonAlphanumeric(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeID("a/b:c"))
}

func TestCache_EvictionRemovesAlbumDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake")) //nolint:errcheck // Test server response.
	}))
	defer server.Close()

	cache, err := New(server.Client(), 1)
	require.NoError(t, err)
	defer cache.ReapAll() //nolint:errcheck // Test cleanup.

	ctx := context.Background()

	first, err := cache.Get(ctx, "album-1", server.URL+"/embed.jpg", "", false)
	require.NoError(t, err)

	firstDir := first.EmbedPath

	// A second album past the capacity of 1 evicts album-1's entry.
	_, err = cache.Get(ctx, "album-2", server.URL+"/embed.jpg", "", false)
	require.NoError(t, err)

	_, err = os.Stat(firstDir)
	assert.True(t, os.IsNotExist(err), "evicted album's directory should be removed, not just forgotten from the LRU")
}
