// Package soundcloud implements client.Client against SoundCloud's public
// v2 API: client_id query-param auth, track/playlist/user metadata, and
// progressive-stream resolution (spec §3 "SoundCloud").
package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/metadata"
)

const (
	apiBaseURL = "https://api-v2.soundcloud.com"
	sourceName = "soundcloud"
)

// Client is SoundCloud's client.Client implementation.
type Client struct {
	httpClient  *http.Client
	rateLimiter interface {
		Wait(ctx context.Context) error
	}
	creds config.SoundCloudCredentials

	mu       sync.Mutex
	loggedIn bool
}

// New builds a SoundCloud client. SoundCloud has no user-account login; the
// "session" is just a client_id that must resolve against the public API.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient:  client.NewHTTPClient(cfg.DisableSSLVerification, cfg.SoundCloud.AppVersion),
		rateLimiter: client.NewRateLimiter(cfg.SoundCloud.RequestsPerMinute),
		creds:       cfg.SoundCloud,
	}
}

func (c *Client) Source() string { return sourceName }

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn
}

// Login validates the configured client_id with a cheap GET of the API root
// rather than a real auth call, since the API is otherwise anonymous.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn {
		return nil
	}

	if c.creds.ClientID == "" {
		return fmt.Errorf("soundcloud: %w", client.ErrMissingCredentials)
	}

	var resp struct {
		ID int64 `json:"id"`
	}

	values := url.Values{"client_id": {c.creds.ClientID}}
	if err := c.get(ctx, "/", values, &resp); err != nil {
		return fmt.Errorf("soundcloud: %w: %w", client.ErrAuthenticationFailed, err)
	}

	c.loggedIn = true

	return nil
}

func (c *Client) GetMetadata(
	ctx context.Context,
	mediaType client.MediaType,
	id string,
) (*client.MetadataResult, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("soundcloud: %w", client.ErrNotLoggedIn)
	}

	switch mediaType {
	case client.MediaTypeTrack:
		return c.getTrack(ctx, id)
	case client.MediaTypePlaylist:
		return c.getPlaylist(ctx, id)
	case client.MediaTypeArtist:
		return c.getArtist(ctx, id)
	case client.MediaTypeAlbum, client.MediaTypeLabel:
		// SoundCloud has neither an album nor a label entity distinct from a
		// "set" (playlist) or a user's uploads.
		return nil, fmt.Errorf("soundcloud: %w: %s", client.ErrUnknownMediaType, mediaType)
	default:
		return nil, fmt.Errorf("soundcloud: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

func (c *Client) getTrack(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto soundCloudTrack
	if err := c.get(ctx, "/tracks/"+id, url.Values{}, &dto); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to fetch track %s: %w", id, err)
	}

	return &client.MetadataResult{Track: dto.toMetadata()}, nil
}

func (c *Client) getPlaylist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto soundCloudPlaylist
	if err := c.get(ctx, "/playlists/"+id, url.Values{}, &dto); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to fetch playlist %s: %w", id, err)
	}

	return &client.MetadataResult{Playlist: dto.toMetadata()}, nil
}

func (c *Client) getArtist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto soundCloudUser
	if err := c.get(ctx, "/users/"+id, url.Values{}, &dto); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to fetch user %s: %w", id, err)
	}

	var tracks struct {
		Collection []soundCloudTrack `json:"collection"`
	}

	if err := c.get(ctx, "/users/"+id+"/tracks", url.Values{}, &tracks); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to fetch user %s tracks: %w", id, err)
	}

	dto.Tracks = tracks.Collection

	return &client.MetadataResult{Artist: dto.toMetadata()}, nil
}

func (c *Client) Search(
	ctx context.Context,
	mediaType client.MediaType,
	query string,
	limit int,
) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("soundcloud: %w", client.ErrNotLoggedIn)
	}

	endpoint, err := searchEndpoint(mediaType)
	if err != nil {
		return nil, err
	}

	values := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}

	var resp soundCloudSearchResponse
	if err = c.get(ctx, endpoint, values, &resp); err != nil {
		return nil, fmt.Errorf("soundcloud: search failed: %w", err)
	}

	return resp.toSearchResults(sourceName, mediaType), nil
}

func searchEndpoint(mediaType client.MediaType) (string, error) {
	switch mediaType {
	case client.MediaTypeTrack:
		return "/search/tracks", nil
	case client.MediaTypePlaylist:
		return "/search/playlists", nil
	case client.MediaTypeArtist:
		return "/search/users", nil
	default:
		return "", fmt.Errorf("soundcloud: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

// GetFeatured resolves one of SoundCloud's curated "system playlists"
// (e.g. "charts-top", "charts-trending") by genre/chart selector.
func (c *Client) GetFeatured(ctx context.Context, selector string) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("soundcloud: %w", client.ErrNotLoggedIn)
	}

	var resp struct {
		Collection []struct {
			Track soundCloudTrack `json:"track"`
		} `json:"collection"`
	}

	values := url.Values{"genre": {"soundcloud:genres:" + selector}, "kind": {"top"}}
	if err := c.get(ctx, "/charts", values, &resp); err != nil {
		return nil, fmt.Errorf("soundcloud: %w: %s: %w", client.ErrUnknownFeaturedSelector, selector, err)
	}

	results := &metadata.SearchResults{Source: sourceName, MediaType: string(client.MediaTypeTrack)}
	for _, entry := range resp.Collection {
		results.Items = append(results.Items, metadata.SearchResultItem{
			ID: strconv.FormatInt(entry.Track.ID, 10), Title: entry.Track.Title, Artist: entry.Track.User.Username,
		})
	}

	return results, nil
}

// GetDownloadable resolves a track's progressive-stream URL. SoundCloud
// streams are a single HTTP file regardless of requested quality; a higher
// quality is served transparently when the account has "go+" access.
func (c *Client) GetDownloadable(ctx context.Context, id string, _ uint8) (client.Downloadable, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("soundcloud: %w", client.ErrNotLoggedIn)
	}

	var track soundCloudTrack
	if err := c.get(ctx, "/tracks/"+id, url.Values{}, &track); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to fetch track %s: %w", id, err)
	}

	if !track.Streamable {
		return nil, fmt.Errorf("soundcloud: track %s: %w", id, client.ErrNonStreamable)
	}

	transcodingURL := track.progressiveTranscodingURL()
	if transcodingURL == "" {
		return nil, fmt.Errorf("soundcloud: track %s: %w", id, client.ErrNonStreamable)
	}

	var resolved struct {
		URL string `json:"url"`
	}

	if err := c.get(ctx, transcodingURL, url.Values{}, &resolved); err != nil {
		return nil, fmt.Errorf("soundcloud: failed to resolve stream for track %s: %w", id, err)
	}

	return client.NewHTTPDownloadable(c.httpClient, resolved.URL, ".mp3", sourceName, 0), nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	values.Set("client_id", c.creds.ClientID)

	reqURL := path
	if len(path) < 4 || path[:4] != "http" {
		reqURL = apiBaseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?"+values.Encode(), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return client.ErrAuthenticationFailed
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
