package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFFmpegCodecName(t *testing.T) {
	name, ok := ffmpegCodecName("mp3")
	assert.True(t, ok)
	assert.Equal(t, "libmp3lame", name)

	_, ok = ffmpegCodecName("wav")
	assert.False(t, ok)
}

func TestSampleFormatForBitDepth(t *testing.T) {
	format, ok := sampleFormatForBitDepth(16)
	assert.True(t, ok)
	assert.Equal(t, "s16", format)

	_, ok = sampleFormatForBitDepth(8)
	assert.False(t, ok)
}

func TestCodecExtensions_CoversAllKnownCodecs(t *testing.T) {
	for codec := range codecExtensions {
		_, ok := ffmpegCodecName(codec)
		assert.Truef(t, ok, "codec %s has an extension but no ffmpeg codec mapping", codec)
	}
}
