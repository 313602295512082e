// Package tidal implements client.Client against Tidal's OAuth2
// refresh-token exchange and GraphQL-ish metadata endpoints, batching metadata
// lookups through machinebox/graphql where Tidal's API supports it (spec §3
// "Tidal").
package tidal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/machinebox/graphql"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/metadata"
)

const (
	apiBaseURL  = "https://api.tidal.com/v1"
	authBaseURL = "https://auth.tidal.com/v1/oauth2/token"
	sourceName  = "tidal"
)

var qualityNames = map[uint8]string{1: "HIGH", 2: "LOSSLESS", 3: "HI_RES_LOSSLESS"}

// Client is Tidal's client.Client implementation.
type Client struct {
	httpClient  *http.Client
	graphClient *graphql.Client
	rateLimiter interface {
		Wait(ctx context.Context) error
	}
	creds config.TidalCredentials

	mu          sync.Mutex
	loggedIn    bool
	accessToken string
}

// New builds a Tidal client backed by the long-lived refresh token stored in
// config; Login exchanges it for a short-lived access token.
func New(cfg *config.Config) *Client {
	httpClient := client.NewHTTPClient(cfg.DisableSSLVerification, "")

	return &Client{
		httpClient:  httpClient,
		graphClient: graphql.NewClient(apiBaseURL+"/graphql", graphql.WithHTTPClient(httpClient)),
		rateLimiter: client.NewRateLimiter(cfg.Tidal.RequestsPerMinute),
		creds:       cfg.Tidal,
	}
}

func (c *Client) Source() string { return sourceName }

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn
}

// Login refreshes the stored refresh token into an access token. Tidal's
// full device-code flow is a one-time interactive setup step outside this
// module's scope; Login here only performs the non-interactive refresh leg.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn {
		return nil
	}

	if c.creds.RefreshToken == "" || c.creds.ClientID == "" {
		return fmt.Errorf("tidal: %w", client.ErrMissingCredentials)
	}

	values := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.creds.RefreshToken},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authBaseURL, nil)
	if err != nil {
		return fmt.Errorf("tidal: %w", err)
	}

	req.URL.RawQuery = values.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tidal: %w: %w", client.ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tidal: %w: status %d", client.ErrAuthenticationFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}

	if err = json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("tidal: %w: %w", client.ErrAuthenticationFailed, err)
	}

	if tokenResp.AccessToken == "" {
		return fmt.Errorf("tidal: %w", client.ErrAuthenticationFailed)
	}

	c.accessToken = tokenResp.AccessToken
	c.loggedIn = true

	return nil
}

func (c *Client) GetMetadata(
	ctx context.Context,
	mediaType client.MediaType,
	id string,
) (*client.MetadataResult, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("tidal: %w", client.ErrNotLoggedIn)
	}

	switch mediaType {
	case client.MediaTypeTrack:
		return c.getTrack(ctx, id)
	case client.MediaTypeAlbum:
		return c.getAlbum(ctx, id)
	case client.MediaTypeArtist:
		return c.getArtist(ctx, id)
	case client.MediaTypePlaylist:
		return c.getPlaylist(ctx, id)
	case client.MediaTypeLabel:
		// Tidal has no label entity distinct from an album's publisher.
		return nil, fmt.Errorf("tidal: %w: label", client.ErrUnknownMediaType)
	default:
		return nil, fmt.Errorf("tidal: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

// graphqlQuery batches a metadata lookup through Tidal's GraphQL gateway,
// the one endpoint family on this backend that supports field batching.
func (c *Client) graphqlQuery(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	return c.graphClient.Run(ctx, req, out)
}

func (c *Client) getTrack(ctx context.Context, id string) (*client.MetadataResult, error) {
	var resp struct {
		Track tidalTrack `json:"track"`
	}

	query := `query($id: ID!) { track(id: $id) { id title trackNumber volumeNumber duration
		artist { name } album { id title releaseDate numberOfTracks cover } } }`

	if err := c.graphqlQuery(ctx, query, map[string]any{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("tidal: failed to fetch track %s: %w", id, err)
	}

	album := resp.Track.Album.toMetadata()
	track := resp.Track.toMetadata(album)

	return &client.MetadataResult{Track: track}, nil
}

func (c *Client) getAlbum(ctx context.Context, id string) (*client.MetadataResult, error) {
	var resp struct {
		Album tidalAlbum `json:"album"`
	}

	query := `query($id: ID!) { album(id: $id) { id title releaseDate numberOfTracks cover
		artist { name } tracks { items { id } } } }`

	if err := c.graphqlQuery(ctx, query, map[string]any{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("tidal: failed to fetch album %s: %w", id, err)
	}

	return &client.MetadataResult{Album: resp.Album.toMetadata()}, nil
}

func (c *Client) getArtist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var resp struct {
		Artist tidalArtist `json:"artist"`
	}

	query := `query($id: ID!) { artist(id: $id) { id name albums { items { id } } } }`

	if err := c.graphqlQuery(ctx, query, map[string]any{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("tidal: failed to fetch artist %s: %w", id, err)
	}

	return &client.MetadataResult{Artist: resp.Artist.toMetadata()}, nil
}

func (c *Client) getPlaylist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var resp struct {
		Playlist tidalPlaylist `json:"playlist"`
	}

	query := `query($id: ID!) { playlist(uuid: $id) { uuid title tracks { items { id } } } }`

	if err := c.graphqlQuery(ctx, query, map[string]any{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("tidal: failed to fetch playlist %s: %w", id, err)
	}

	return &client.MetadataResult{Playlist: resp.Playlist.toMetadata()}, nil
}

func (c *Client) Search(
	ctx context.Context,
	mediaType client.MediaType,
	query string,
	limit int,
) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("tidal: %w", client.ErrNotLoggedIn)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}, "types": {strings.ToUpper(string(mediaType))}}

	var resp tidalSearchResponse
	if err := c.get(ctx, "/search", values, &resp); err != nil {
		return nil, fmt.Errorf("tidal: search failed: %w", err)
	}

	return resp.toSearchResults(sourceName, mediaType), nil
}

// GetFeatured is unsupported: Tidal's curated "moods/genres" shelves have no
// stable selector API exposed to third-party clients.
func (c *Client) GetFeatured(context.Context, string) (*metadata.SearchResults, error) {
	return nil, fmt.Errorf("tidal: %w", client.ErrUnknownFeaturedSelector)
}

func (c *Client) GetDownloadable(ctx context.Context, id string, quality uint8) (client.Downloadable, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("tidal: %w", client.ErrNotLoggedIn)
	}

	audioQuality, ok := qualityNames[quality]
	if !ok {
		audioQuality = qualityNames[1]
	}

	var resp struct {
		Manifest     string `json:"manifest"`
		ManifestMime string `json:"manifestMimeType"`
		Streamable   bool   `json:"assetPresentation"`
	}

	values := url.Values{"audioquality": {audioQuality}, "playbackmode": {"STREAM"}, "assetpresentation": {"FULL"}}
	if err := c.get(ctx, fmt.Sprintf("/tracks/%s/playbackinfopostpaywall", id), values, &resp); err != nil {
		return nil, fmt.Errorf("tidal: failed to resolve stream for track %s: %w", id, err)
	}

	if resp.Manifest == "" {
		return nil, fmt.Errorf("tidal: track %s: %w", id, client.ErrNonStreamable)
	}

	// Tidal serves either a direct FLAC/MP3 URL or a base64-encoded MPD
	// manifest depending on audioQuality; manifest reassembly is out of scope.
	if resp.ManifestMime == "application/vnd.tidal.bts" {
		return &client.MPDDownloadable{FileExtension: ".flac", ManifestURL: resp.Manifest}, nil
	}

	return client.NewHTTPDownloadable(c.httpClient, resp.Manifest, ".flac", sourceName, 0), nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+path+"?"+values.Encode(), http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)

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
