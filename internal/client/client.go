// Package client defines the per-source authenticated façade every backend
// (Qobuz, Tidal, Deezer, SoundCloud) implements, plus the helpers shared by
// all four concrete clients: a rate limiter factory and an HTTP client
// factory wired through the teacher's logging/user-agent RoundTripper chain.
package client

import (
	"context"
	"errors"

	"github.com/oshokin/crateflow/internal/metadata"
)

// MediaType is the tagged-enum dispatch key for Client.GetMetadata and
// Client.Search (spec §9: "Factory by string" redesign note — the backend
// operation surface gets the same exhaustive-enum treatment as the Pending
// factory).
type MediaType string

// The five concrete media kinds plus the reserved featured/editorial channel.
const (
	MediaTypeTrack    MediaType = "track"
	MediaTypeAlbum    MediaType = "album"
	MediaTypeArtist   MediaType = "artist"
	MediaTypeLabel    MediaType = "label"
	MediaTypePlaylist MediaType = "playlist"
	MediaTypeFeatured MediaType = "featured"
)

// Static error sentinels classifying every failure mode named in spec §7.
var (
	ErrMissingCredentials      = errors.New("missing credentials")
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrIneligibleAccount       = errors.New("account lacks the required tier")
	ErrNonStreamable           = errors.New("item is not streamable")
	ErrUnknownMediaType        = errors.New("unknown media type")
	ErrUnknownFeaturedSelector = errors.New("unknown featured selector")
	ErrNotLoggedIn             = errors.New("client is not logged in")
)

// MetadataResult is the normalized outcome of GetMetadata: exactly one field
// is populated, selected by the MediaType that was requested. This is the
// Go-native replacement for the source's dict[str, Any] response (spec §9
// design note "Dynamic metadata dicts").
type MetadataResult struct {
	Track    *metadata.TrackMetadata
	Album    *metadata.AlbumMetadata
	Artist   *metadata.ArtistMetadata
	Label    *metadata.LabelMetadata
	Playlist *metadata.PlaylistMetadata
}

// Client is the capability set every backend must satisfy (spec §4.1).
type Client interface {
	// Source returns the backend identifier ("qobuz", "tidal", …).
	Source() string

	// LoggedIn reports whether Login has completed successfully.
	LoggedIn() bool

	// Login is idempotent: a second call on an already logged-in client is a
	// no-op returning nil. Fails with ErrMissingCredentials,
	// ErrAuthenticationFailed, or ErrIneligibleAccount.
	Login(ctx context.Context) error

	// GetMetadata normalizes the backend response for one item. For
	// MediaTypeTrack the result's Track.Album is populated with the full
	// containing album so tracknumber/track_total are correct. Fails with
	// ErrNonStreamable when the id is unknown or region-locked.
	GetMetadata(ctx context.Context, mediaType MediaType, id string) (*MetadataResult, error)

	// Search returns up to limit hits for query. It does not handle
	// MediaTypeFeatured: featured lists are fetched through GetFeatured.
	Search(ctx context.Context, mediaType MediaType, query string, limit int) (*metadata.SearchResults, error)

	// GetFeatured resolves a backend-curated editorial list by its selector
	// string; fails with ErrUnknownFeaturedSelector when selector is not
	// recognized.
	GetFeatured(ctx context.Context, selector string) (*metadata.SearchResults, error)

	// GetDownloadable selects the best available stream at or below quality;
	// it never silently upgrades past the requested quality.
	GetDownloadable(ctx context.Context, id string, quality uint8) (Downloadable, error)

	// Close releases the client's HTTP session. Safe to call multiple times.
	Close() error
}
