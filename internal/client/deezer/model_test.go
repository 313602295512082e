package deezer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResponse_ToSearchResults_ExtractsNestedArtistName(t *testing.T) {
	raw := `{"data": [{"id": 7, "title": "Song", "artist": {"name": "Someone"}}]}`

	var resp deezerSearchResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	results := resp.toSearchResults(sourceName, "track")

	require.Len(t, results.Items, 1)
	assert.Equal(t, "7", results.Items[0].ID)
	assert.Equal(t, "Song", results.Items[0].Title)
	assert.Equal(t, "Someone", results.Items[0].Artist)
}

func TestAlbumToMetadata_DerivesReleaseYear(t *testing.T) {
	album := deezerAlbum{ID: 1, ReleaseDate: "2021-03-04"}

	meta := album.toMetadata()

	assert.Equal(t, "2021", meta.ReleaseYear)
}
