package soundcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressiveTranscodingURL_SkipsHLS(t *testing.T) {
	track := soundCloudTrack{}
	track.Media.Transcodings = []soundCloudTranscoding{
		{URL: "hls-url", Format: struct {
			Protocol string `json:"protocol"`
		}{Protocol: "hls"}},
		{URL: "progressive-url", Format: struct {
			Protocol string `json:"protocol"`
		}{Protocol: "progressive"}},
	}

	assert.Equal(t, "progressive-url", track.progressiveTranscodingURL())
}

func TestProgressiveTranscodingURL_NoneFound(t *testing.T) {
	track := soundCloudTrack{}
	assert.Empty(t, track.progressiveTranscodingURL())
}

func TestTrackToMetadata_ConvertsDurationToSeconds(t *testing.T) {
	track := soundCloudTrack{ID: 1, Duration: 185000}

	meta := track.toMetadata()

	assert.Equal(t, 185, meta.Duration)
}
