package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/metadata"
)

func TestParseMediaType_KnownValues(t *testing.T) {
	for _, name := range []string{"track", "album", "artist", "label", "playlist", "featured"} {
		mediaType, ok := parseMediaType(name)
		assert.True(t, ok, name)
		assert.Equal(t, client.MediaType(name), mediaType)
	}
}

func TestParseMediaType_UnknownValue(t *testing.T) {
	_, ok := parseMediaType("nope")
	assert.False(t, ok)
}

func TestWriteSearchResultsToFile_WritesJSONArray(t *testing.T) {
	results := &metadata.SearchResults{
		Items: []metadata.SearchResultItem{
			{ID: "1", Artist: "Artist A", Title: "Title A"},
			{ID: "2", Artist: "Artist B", Title: "Title B"},
		},
	}

	path := filepath.Join(t.TempDir(), "results.json")

	writeSearchResultsToFile(context.Background(), results, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
}
