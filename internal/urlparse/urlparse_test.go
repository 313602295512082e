package urlparse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
)

func TestParse_RecognizesEachSource(t *testing.T) {
	cases := []struct {
		url       string
		source    string
		mediaType client.MediaType
		id        string
	}{
		{"https://www.qobuz.com/us-en/album/some-title/abc123", config.SourceQobuz, client.MediaTypeAlbum, "abc123"},
		{"https://tidal.com/browse/track/12345678", config.SourceTidal, client.MediaTypeTrack, "12345678"},
		{"https://www.deezer.com/en/playlist/908273", config.SourceDeezer, client.MediaTypePlaylist, "908273"},
		{"https://soundcloud.com/some-artist/some-track", config.SourceSoundCloud, client.MediaTypeTrack, "some-artist/some-track"},
		{"https://soundcloud.com/some-artist/sets/some-playlist", config.SourceSoundCloud, client.MediaTypePlaylist, "some-playlist"},
	}

	for _, tc := range cases {
		ref, ok := Parse(tc.url)
		require.Truef(t, ok, "expected %s to parse", tc.url)
		assert.Equal(t, tc.source, ref.Source)
		assert.Equal(t, tc.mediaType, ref.MediaType)
		assert.Equal(t, tc.id, ref.ID)
	}
}

func TestParse_LastfmURL(t *testing.T) {
	ref, ok := Parse("https://www.last.fm/user/someone/playlists/12345")
	require.True(t, ok)
	assert.True(t, ref.IsLastfmURL)
}

func TestParse_UnknownURL(t *testing.T) {
	_, ok := Parse("https://example.com/nothing")
	assert.False(t, ok)
}

func TestExpand_ReadsTextFilesAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("https://a\nhttps://b\nhttps://a\n"), 0o600))

	expanded, err := Expand([]string{"https://c", listPath, "https://c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c", "https://a", "https://b"}, expanded)
}
