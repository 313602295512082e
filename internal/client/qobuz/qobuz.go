// Package qobuz implements client.Client against Qobuz's JSON HTTP API:
// email/password or user-id/token login, track/album/artist/label/playlist
// metadata, and direct-URL FLAC/MP3 streams (spec §3 "Qobuz").
package qobuz

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
	baseURL    = "https://www.qobuz.com/api.json/0.2"
	sourceName = "qobuz"
)

// qualityCodes maps the module's 1..3 quality scale onto Qobuz's
// format_id values (MP3 320, FLAC 16-bit, FLAC Hi-Res).
var qualityCodes = map[uint8]string{1: "5", 2: "6", 3: "27"}

// Client is Qobuz's client.Client implementation.
type Client struct {
	httpClient  *http.Client
	rateLimiter interface {
		Wait(ctx context.Context) error
	}
	creds config.QobuzCredentials

	mu       sync.Mutex
	loggedIn bool
	userAuth string // user_auth_token returned at login, sent on every subsequent call
}

// New builds a Qobuz client. Login is deferred until Login is called.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient:  client.NewHTTPClient(cfg.DisableSSLVerification, ""),
		rateLimiter: client.NewRateLimiter(cfg.Qobuz.RequestsPerMinute),
		creds:       cfg.Qobuz,
	}
}

func (c *Client) Source() string { return sourceName }

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn
}

// Login exchanges email/password (or a pre-existing user-id/token pair) for
// a user_auth_token. Idempotent: a second call is a no-op.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn {
		return nil
	}

	if c.creds.EmailOrUserID == "" || c.creds.PasswordOrToken == "" || c.creds.AppID == "" {
		return fmt.Errorf("qobuz: %w", client.ErrMissingCredentials)
	}

	values := url.Values{
		"email":    {c.creds.EmailOrUserID},
		"password": {c.creds.PasswordOrToken},
		"app_id":   {c.creds.AppID},
	}

	var loginResp struct {
		UserAuthToken string `json:"user_auth_token"`
		User          struct {
			Subscription struct {
				Offer string `json:"offer"`
			} `json:"subscription"`
		} `json:"user"`
	}

	if err := c.post(ctx, "/user/login", values, &loginResp); err != nil {
		return fmt.Errorf("qobuz: %w: %w", client.ErrAuthenticationFailed, err)
	}

	if loginResp.UserAuthToken == "" {
		return fmt.Errorf("qobuz: %w", client.ErrAuthenticationFailed)
	}

	if loginResp.User.Subscription.Offer == "" {
		return fmt.Errorf("qobuz: %w", client.ErrIneligibleAccount)
	}

	c.userAuth = loginResp.UserAuthToken
	c.loggedIn = true

	return nil
}

func (c *Client) GetMetadata(
	ctx context.Context,
	mediaType client.MediaType,
	id string,
) (*client.MetadataResult, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("qobuz: %w", client.ErrNotLoggedIn)
	}

	switch mediaType {
	case client.MediaTypeTrack:
		return c.getTrack(ctx, id)
	case client.MediaTypeAlbum:
		return c.getAlbum(ctx, id)
	case client.MediaTypeArtist:
		return c.getArtist(ctx, id)
	case client.MediaTypeLabel:
		return c.getLabel(ctx, id)
	case client.MediaTypePlaylist:
		return c.getPlaylist(ctx, id)
	default:
		return nil, fmt.Errorf("qobuz: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

func (c *Client) getTrack(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto qobuzTrack
	if err := c.get(ctx, "/track/get", url.Values{"track_id": {id}}, &dto); err != nil {
		return nil, fmt.Errorf("qobuz: failed to fetch track %s: %w", id, err)
	}

	album := dto.Album.toMetadata()
	track := dto.toMetadata(album)

	return &client.MetadataResult{Track: track}, nil
}

func (c *Client) getAlbum(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto qobuzAlbum
	if err := c.get(ctx, "/album/get", url.Values{"album_id": {id}}, &dto); err != nil {
		return nil, fmt.Errorf("qobuz: failed to fetch album %s: %w", id, err)
	}

	return &client.MetadataResult{Album: dto.toMetadata()}, nil
}

func (c *Client) getArtist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto qobuzArtist
	if err := c.get(ctx, "/artist/get", url.Values{"artist_id": {id}, "extra": {"albums"}}, &dto); err != nil {
		return nil, fmt.Errorf("qobuz: failed to fetch artist %s: %w", id, err)
	}

	return &client.MetadataResult{Artist: dto.toMetadata()}, nil
}

func (c *Client) getLabel(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto qobuzLabel
	if err := c.get(ctx, "/label/get", url.Values{"label_id": {id}, "extra": {"albums"}}, &dto); err != nil {
		return nil, fmt.Errorf("qobuz: failed to fetch label %s: %w", id, err)
	}

	return &client.MetadataResult{Label: dto.toMetadata()}, nil
}

func (c *Client) getPlaylist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto qobuzPlaylist
	if err := c.get(ctx, "/playlist/get", url.Values{"playlist_id": {id}, "extra": {"tracks"}}, &dto); err != nil {
		return nil, fmt.Errorf("qobuz: failed to fetch playlist %s: %w", id, err)
	}

	return &client.MetadataResult{Playlist: dto.toMetadata()}, nil
}

func (c *Client) Search(
	ctx context.Context,
	mediaType client.MediaType,
	query string,
	limit int,
) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("qobuz: %w", client.ErrNotLoggedIn)
	}

	endpoint, err := searchEndpoint(mediaType)
	if err != nil {
		return nil, err
	}

	var resp qobuzSearchResponse

	values := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, endpoint, values, &resp); err != nil {
		return nil, fmt.Errorf("qobuz: search failed: %w", err)
	}

	return resp.toSearchResults(sourceName, mediaType), nil
}

func searchEndpoint(mediaType client.MediaType) (string, error) {
	switch mediaType {
	case client.MediaTypeTrack:
		return "/track/search", nil
	case client.MediaTypeAlbum:
		return "/album/search", nil
	case client.MediaTypeArtist:
		return "/artist/search", nil
	case client.MediaTypePlaylist:
		return "/playlist/search", nil
	default:
		return "", fmt.Errorf("qobuz: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

// GetFeatured resolves one of Qobuz's curated editorial shelves
// ("new-releases", "best-sellers", "editor-picks", …) by selector name.
func (c *Client) GetFeatured(ctx context.Context, selector string) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("qobuz: %w", client.ErrNotLoggedIn)
	}

	var resp qobuzSearchResponse

	values := url.Values{"type": {selector}}
	if err := c.get(ctx, "/album/getFeatured", values, &resp); err != nil {
		return nil, fmt.Errorf("qobuz: %w: %s: %w", client.ErrUnknownFeaturedSelector, selector, err)
	}

	return resp.toSearchResults(sourceName, client.MediaTypeAlbum), nil
}

// GetDownloadable resolves the stream URL for a track at or below quality,
// capped to whatever the account's subscription is eligible to stream.
func (c *Client) GetDownloadable(ctx context.Context, id string, quality uint8) (client.Downloadable, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("qobuz: %w", client.ErrNotLoggedIn)
	}

	formatID, ok := qualityCodes[quality]
	if !ok {
		formatID = qualityCodes[1]
	}

	var resp struct {
		URL          string  `json:"url"`
		MimeType     string  `json:"mime_type"`
		Streamable   bool    `json:"streamable"`
		SamplingRate float64 `json:"sampling_rate"`
		BitDepth     int     `json:"bit_depth"`
	}

	values := url.Values{"track_id": {id}, "format_id": {formatID}, "intent": {"stream"}}
	if err := c.get(ctx, "/track/getFileUrl", values, &resp); err != nil {
		return nil, fmt.Errorf("qobuz: failed to resolve stream for track %s: %w", id, err)
	}

	if !resp.Streamable || resp.URL == "" {
		return nil, fmt.Errorf("qobuz: track %s: %w", id, client.ErrNonStreamable)
	}

	ext := ".mp3"
	if resp.BitDepth > 16 || resp.SamplingRate > 44.1 {
		ext = ".flac"
	} else if formatID != qualityCodes[1] {
		ext = ".flac"
	}

	return client.NewHTTPDownloadable(c.httpClient, resp.URL, ext, sourceName, 0), nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, values, out)
}

func (c *Client) post(ctx context.Context, path string, values url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, values, out)
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	if c.userAuth != "" {
		values.Set("user_auth_token", c.userAuth)
	}

	reqURL := baseURL + path + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("X-App-Id", c.creds.AppID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode == http.StatusUnauthorized {
		return client.ErrAuthenticationFailed
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
