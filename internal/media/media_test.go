package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/ledger"
	"github.com/oshokin/crateflow/internal/metadata"
	"github.com/oshokin/crateflow/internal/progress"
	"github.com/oshokin/crateflow/internal/tag"
)

// fakeDownloadable is a hand-written client.Downloadable stub: Track only
// needs Download/Extension, so a mock generator is more ceremony than value.
type fakeDownloadable struct {
	downloadErr error
	attempts    int
}

func (*fakeDownloadable) Size(context.Context) (int64, error) { return 0, nil }

func (f *fakeDownloadable) Download(_ context.Context, path string, _ func(int64)) error {
	f.attempts++

	if f.downloadErr != nil {
		return f.downloadErr
	}

	return os.WriteFile(path, []byte("data"), 0o644) //nolint:mnd // test fixture, not a production permission choice.
}

func (*fakeDownloadable) Extension() string { return ".flac" }
func (*fakeDownloadable) Source() string    { return "qobuz" }

func testDeps(t *testing.T) *Deps {
	t.Helper()

	cfg := &config.Config{}
	cfg.Downloads.MaxConnections = 2
	cfg.Filepaths.FolderFormat = config.DefaultFolderFormat
	cfg.Filepaths.TrackFormat = config.DefaultTrackFormat

	dbCfg := config.DatabaseConfig{
		DownloadsEnabled:       true,
		DownloadsPath:          filepath.Join(t.TempDir(), "completed.db"),
		FailedDownloadsEnabled: true,
		FailedDownloadsPath:    filepath.Join(t.TempDir(), "failed.db"),
	}

	db, err := ledger.NewDatabase(dbCfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	formatter := metadata.NewPathFormatter(context.Background(), cfg)

	return NewDeps(cfg, formatter, tag.NewWriter(), nil, nil, progress.New(false), db)
}

func newTestTrack(t *testing.T, downloadable *fakeDownloadable) *Track {
	t.Helper()

	deps := testDeps(t)

	return &Track{
		Deps:         deps,
		Meta:         &metadata.TrackMetadata{ID: "1", Source: "qobuz", Title: "Song", Artist: "Band"},
		Downloadable: downloadable,
		Folder:       t.TempDir(),
		IsSingle:     true,
	}
}

func TestTrack_Rip_WritesFileAndMarksCompleted(t *testing.T) {
	dl := &fakeDownloadable{}
	track := newTestTrack(t, dl)

	track.Rip(context.Background())

	assert.Equal(t, 1, dl.attempts)

	entry := ledger.Entry{Source: "qobuz", MediaType: "track", ID: "1"}

	contains, err := track.Deps.Ledger.Completed.Contains(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, contains)
}

func TestTrack_Rip_SkipsWhenAlreadyCompleted(t *testing.T) {
	dl := &fakeDownloadable{}
	track := newTestTrack(t, dl)

	entry := ledger.Entry{Source: "qobuz", MediaType: "track", ID: "1"}
	require.NoError(t, track.Deps.Ledger.Completed.MarkCompleted(context.Background(), entry))

	track.Rip(context.Background())

	assert.Equal(t, 0, dl.attempts)
}

func TestTrack_Rip_RetriesOnceThenMarksFailed(t *testing.T) {
	dl := &fakeDownloadable{downloadErr: errors.New("connection reset")}
	track := newTestTrack(t, dl)

	track.Rip(context.Background())

	assert.Equal(t, 2, dl.attempts)

	entry := ledger.Entry{Source: "qobuz", MediaType: "track", ID: "1"}

	contains, err := track.Deps.Ledger.Failed.Contains(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, contains)

	completed, err := track.Deps.Ledger.Completed.Contains(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, completed, "terminal download failure must skip postprocess entirely")
}

func TestFanOut_IsolatesChildErrors(t *testing.T) {
	var ripped atomic.Int32

	resolvers := []Resolver{
		func(context.Context) (Media, error) { return nil, errors.New("boom") },
		func(context.Context) (Media, error) { return nil, nil },
		func(context.Context) (Media, error) {
			return resolverFunc(func(context.Context) { ripped.Add(1) }), nil
		},
	}

	fanOut(context.Background(), resolvers)

	assert.Equal(t, int32(1), ripped.Load())
}

// resolverFunc adapts a plain function to Media for fanOut tests.
type resolverFunc func(ctx context.Context)

func (f resolverFunc) Rip(ctx context.Context) { f(ctx) }

func TestAlbum_Rip_FansOutOverTracks(t *testing.T) {
	deps := testDeps(t)

	var ripped atomic.Int32

	album := &Album{
		Deps: deps,
		Meta: &metadata.AlbumMetadata{ID: "a1", Title: "Album"},
		Tracks: []Resolver{
			func(context.Context) (Media, error) {
				return resolverFunc(func(context.Context) { ripped.Add(1) }), nil
			},
			func(context.Context) (Media, error) {
				return resolverFunc(func(context.Context) { ripped.Add(1) }), nil
			},
		},
	}

	album.Rip(context.Background())

	assert.Equal(t, int32(2), ripped.Load())
}
