package tag

import (
	"testing"

	"github.com/go-flac/flacvorbis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromExtension(t *testing.T) {
	flacFormat, ok := FormatFromExtension(".flac")
	require.True(t, ok)
	assert.Equal(t, FormatFLAC, flacFormat)

	mp3Format, ok := FormatFromExtension(".mp3")
	require.True(t, ok)
	assert.Equal(t, FormatMP3, mp3Format)

	_, ok = FormatFromExtension(".ogg")
	assert.False(t, ok)
}

func TestAddFLACTags_SkipsEmptyValues(t *testing.T) {
	comment := flacvorbis.New()

	err := addFLACTags(comment, map[string]string{
		"trackTitle":  "Song",
		"trackArtist": "",
	})
	require.NoError(t, err)

	values, err := comment.Get("TITLE")
	require.NoError(t, err)
	assert.Equal(t, []string{"Song"}, values)

	_, err = comment.Get("ARTIST")
	assert.Error(t, err)
}
