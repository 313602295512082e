package pending

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/ledger"
	"github.com/oshokin/crateflow/internal/media"
	"github.com/oshokin/crateflow/internal/metadata"
	"github.com/oshokin/crateflow/internal/progress"
	"github.com/oshokin/crateflow/internal/tag"
)

// fakeClient is a hand-written client.Client stub: the pending package only
// needs GetMetadata/GetDownloadable/Search/Source from it, so a mock
// generator is more ceremony than value here.
type fakeClient struct {
	source  string
	tracks  map[string]*metadata.TrackMetadata
	albums  map[string]*metadata.AlbumMetadata
	artists map[string]*metadata.ArtistMetadata
	labels  map[string]*metadata.LabelMetadata
	getErr  error
	hits    map[string]string // query -> id
}

func (f *fakeClient) Source() string              { return f.source }
func (f *fakeClient) LoggedIn() bool              { return true }
func (f *fakeClient) Login(context.Context) error { return nil }
func (f *fakeClient) Close() error                { return nil }

func (f *fakeClient) GetMetadata(_ context.Context, mediaType client.MediaType, id string) (*client.MetadataResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	switch mediaType {
	case client.MediaTypeTrack:
		return &client.MetadataResult{Track: f.tracks[id]}, nil
	case client.MediaTypeAlbum:
		return &client.MetadataResult{Album: f.albums[id]}, nil
	case client.MediaTypeArtist:
		return &client.MetadataResult{Artist: f.artists[id]}, nil
	case client.MediaTypeLabel:
		return &client.MetadataResult{Label: f.labels[id]}, nil
	default:
		return nil, client.ErrUnknownMediaType
	}
}

func (f *fakeClient) Search(_ context.Context, _ client.MediaType, query string, _ int) (*metadata.SearchResults, error) {
	id, ok := f.hits[query]
	if !ok {
		return &metadata.SearchResults{}, nil
	}

	return &metadata.SearchResults{Items: []metadata.SearchResultItem{{ID: id}}}, nil
}

func (f *fakeClient) GetFeatured(context.Context, string) (*metadata.SearchResults, error) {
	return nil, client.ErrUnknownFeaturedSelector
}

func (f *fakeClient) GetDownloadable(context.Context, string, uint8) (client.Downloadable, error) {
	return &fakeDownloadable{}, nil
}

type fakeDownloadable struct{}

func (*fakeDownloadable) Size(context.Context) (int64, error)                 { return 0, nil }
func (*fakeDownloadable) Download(context.Context, string, func(int64)) error { return nil }
func (*fakeDownloadable) Extension() string                                   { return ".flac" }
func (*fakeDownloadable) Source() string                                      { return "fake" }

func testDeps(t *testing.T) *media.Deps {
	t.Helper()

	cfg := &config.Config{}
	cfg.Downloads.Folder = "/music"
	cfg.Filepaths.FolderFormat = config.DefaultFolderFormat
	cfg.Filepaths.TrackFormat = config.DefaultTrackFormat
	cfg.Downloads.MaxConnections = 2

	db, err := ledger.NewDatabase(config.DatabaseConfig{})
	require.NoError(t, err)

	return media.NewDeps(
		cfg,
		metadata.NewPathFormatter(context.Background(), cfg),
		tag.NewWriter(),
		nil,
		nil,
		progress.New(false),
		db,
	)
}

func TestFactory_ExhaustiveMediaTypes(t *testing.T) {
	deps := testDeps(t)
	cl := &fakeClient{source: "qobuz"}

	cases := []client.MediaType{
		client.MediaTypeTrack,
		client.MediaTypeAlbum,
		client.MediaTypeArtist,
		client.MediaTypeLabel,
		client.MediaTypePlaylist,
	}

	for _, mt := range cases {
		p, err := Factory(mt, "1", cl, deps, 3)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}
}

func TestFactory_UnknownMediaType(t *testing.T) {
	deps := testDeps(t)
	cl := &fakeClient{source: "qobuz"}

	_, err := Factory(client.MediaTypeFeatured, "1", cl, deps, 3)
	assert.ErrorIs(t, err, ErrUnknownMediaType)
}

func TestSingle_Resolve_BuildsTrack(t *testing.T) {
	deps := testDeps(t)
	cl := &fakeClient{
		source: "qobuz",
		tracks: map[string]*metadata.TrackMetadata{
			"1": {ID: "1", Title: "Song", Artist: "Band"},
		},
	}

	p := &Single{Client: cl, Deps: deps, ID: "1", Quality: 3}

	m, err := p.Resolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)

	track, ok := m.(*media.Track)
	require.True(t, ok)
	assert.True(t, track.IsSingle)
}

func TestSingle_Resolve_MetadataErrorSkips(t *testing.T) {
	deps := testDeps(t)
	cl := &fakeClient{source: "qobuz", getErr: errors.New("boom")}

	p := &Single{Client: cl, Deps: deps, ID: "1", Quality: 3}

	m, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAlbumRef_Resolve_BuildsTrackResolvers(t *testing.T) {
	deps := testDeps(t)
	cl := &fakeClient{
		source: "qobuz",
		albums: map[string]*metadata.AlbumMetadata{
			"10": {ID: "10", Title: "LP", Artist: "Band", TrackIDs: []string{"1", "2"}},
		},
		tracks: map[string]*metadata.TrackMetadata{
			"1": {ID: "1", Title: "A"},
			"2": {ID: "2", Title: "B"},
		},
	}

	p := &AlbumRef{Client: cl, Deps: deps, ID: "10", Quality: 3}

	m, err := p.Resolve(context.Background())
	require.NoError(t, err)

	album, ok := m.(*media.Album)
	require.True(t, ok)
	assert.Len(t, album.Tracks, 2)
}

func TestLastfmPlaylist_Resolve_FallsBackOnEmptyPrimaryHit(t *testing.T) {
	deps := testDeps(t)

	primary := &fakeClient{source: "qobuz", hits: map[string]string{}}
	fallback := &fakeClient{
		source: "tidal",
		hits:   map[string]string{"Band Song": "99"},
		tracks: map[string]*metadata.TrackMetadata{"99": {ID: "99", Title: "Song"}},
	}

	p := &LastfmPlaylist{
		Name:           "my playlist",
		Entries:        []LastfmEntry{{Artist: "Band", Title: "Song"}},
		PrimaryClient:  primary,
		FallbackClient: fallback,
		Deps:           deps,
		Quality:        3,
	}

	m, err := p.Resolve(context.Background())
	require.NoError(t, err)

	playlist, ok := m.(*media.Playlist)
	require.True(t, ok)
	require.Len(t, playlist.Tracks, 1)

	resolved, err := playlist.Tracks[0](context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resolved)
}

func TestLastfmPlaylist_Resolve_NoMatchOnAnySource(t *testing.T) {
	deps := testDeps(t)

	primary := &fakeClient{source: "qobuz", hits: map[string]string{}}
	fallback := &fakeClient{source: "tidal", hits: map[string]string{}}

	p := &LastfmPlaylist{
		Name:           "my playlist",
		Entries:        []LastfmEntry{{Artist: "Unknown", Title: "Track"}},
		PrimaryClient:  primary,
		FallbackClient: fallback,
		Deps:           deps,
		Quality:        3,
	}

	m, err := p.Resolve(context.Background())
	require.NoError(t, err)

	playlist := m.(*media.Playlist)
	_, err = playlist.Tracks[0](context.Background())
	assert.Error(t, err)
}
