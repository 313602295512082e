package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Downloads.Folder = "/music"
	cfg.Downloads.MaxConnections = 2
	cfg.Filepaths.FolderFormat = config.DefaultFolderFormat
	cfg.Filepaths.TrackFormat = config.DefaultTrackFormat
	cfg.Qobuz.Quality = 3

	return cfg
}

func TestNew_BuildsOneClientPerSource(t *testing.T) {
	o, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	assert.Len(t, o.clients, 4)
	assert.Contains(t, o.clients, config.SourceQobuz)
	assert.Contains(t, o.clients, config.SourceTidal)
	assert.Contains(t, o.clients, config.SourceDeezer)
	assert.Contains(t, o.clients, config.SourceSoundCloud)
}

func TestAddByID_UnknownSource(t *testing.T) {
	o, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	err = o.AddByID(context.Background(), "nope", client.MediaTypeTrack, "1")
	assert.Error(t, err)
}

func TestAddByID_EnqueuesPendingItem(t *testing.T) {
	o, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	err = o.AddByID(context.Background(), config.SourceQobuz, client.MediaTypeTrack, "1")
	require.NoError(t, err)
	assert.Len(t, o.pendingList, 1)
}

func TestAdd_UnrecognizedURL(t *testing.T) {
	o, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	err = o.Add(context.Background(), "https://example.com/nothing")
	assert.Error(t, err)
}

func TestSourceQuality(t *testing.T) {
	cfg := testConfig()
	cfg.Tidal.Quality = 2
	cfg.Deezer.Quality = 1

	assert.Equal(t, uint8(3), sourceQuality(cfg, config.SourceQobuz))
	assert.Equal(t, uint8(2), sourceQuality(cfg, config.SourceTidal))
	assert.Equal(t, uint8(1), sourceQuality(cfg, config.SourceDeezer))
	assert.Equal(t, uint8(0), sourceQuality(cfg, config.SourceSoundCloud))
}

func TestTeardown_ClosesClientsWithoutError(t *testing.T) {
	o, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		o.Teardown(context.Background())
	})
}
