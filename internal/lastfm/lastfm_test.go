package lastfm

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>My Playlist | Last.fm</title></head>
<body>
<ul>
<li data-artist-name="Boards of Canada" data-track-name="Roygbiv"></li>
<li data-artist-name="Aphex Twin" data-track-name="Xtal"></li>
</ul>
</body>
</html>`

func TestFetch_ParsesPlaylistNameAndTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	scraper := New(server.Client())

	name, entries, err := scraper.Fetch(t.Context(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "My Playlist | Last.fm", name)
	require.Len(t, entries, 2)
	assert.Equal(t, "Boards of Canada", entries[0].Artist)
	assert.Equal(t, "Roygbiv", entries[0].Title)
	assert.Equal(t, "Aphex Twin", entries[1].Artist)
}

func TestFetch_NoTracksFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Empty</title></head><body></body></html>`))
	}))
	defer server.Close()

	scraper := New(server.Client())

	_, _, err := scraper.Fetch(t.Context(), server.URL)
	assert.ErrorIs(t, err, ErrNoTracksFound)
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	scraper := New(server.Client())

	_, _, err := scraper.Fetch(t.Context(), server.URL)
	assert.Error(t, err)
}
