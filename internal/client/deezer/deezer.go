// Package deezer implements client.Client against Deezer's private
// gw-light.php gateway: ARL-cookie login, getUserData/public-API metadata,
// and Blowfish-scrambled stream chunks (spec §3 "Deezer").
package deezer

import (
	"bytes"
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
	publicAPIURL  = "https://api.deezer.com"
	privateAPIURL = "https://www.deezer.com/ajax/gw-light.php"
	sourceName    = "deezer"
)

// qualityFormats maps the module's 1..3 quality scale onto Deezer's
// format names (MP3 128, MP3 320, FLAC).
var qualityFormats = map[uint8]string{1: "MP3_128", 2: "MP3_320", 3: "FLAC"}

// Client is Deezer's client.Client implementation.
type Client struct {
	httpClient  *http.Client
	rateLimiter interface {
		Wait(ctx context.Context) error
	}
	creds config.DeezerCredentials

	mu           sync.Mutex
	loggedIn     bool
	apiToken     string
	licenseToken string
	userID       string
}

// New builds a Deezer client. The ARL cookie stands in for both identity and
// session, so Login here is just a getUserData round-trip.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient:  client.NewHTTPClient(cfg.DisableSSLVerification, ""),
		rateLimiter: client.NewRateLimiter(cfg.Deezer.RequestsPerMinute),
		creds:       cfg.Deezer,
	}
}

func (c *Client) Source() string { return sourceName }

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn
}

// Login exchanges the ARL cookie for an api_token and license_token, both
// required by every subsequent private-API call.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn {
		return nil
	}

	if c.creds.ARL == "" {
		return fmt.Errorf("deezer: %w", client.ErrMissingCredentials)
	}

	var resp struct {
		Results struct {
			CheckForm string `json:"checkForm"`
			User      struct {
				ID           int64  `json:"USER_ID"`
				OptionsToken string `json:"OPTIONS"`
			} `json:"USER"`
		} `json:"results"`
	}

	if err := c.gwCall(ctx, "deezer.getUserData", nil, &resp); err != nil {
		return fmt.Errorf("deezer: %w: %w", client.ErrAuthenticationFailed, err)
	}

	if resp.Results.User.ID == 0 {
		return fmt.Errorf("deezer: %w", client.ErrAuthenticationFailed)
	}

	c.apiToken = resp.Results.CheckForm
	c.userID = strconv.FormatInt(resp.Results.User.ID, 10)
	c.licenseToken = resp.Results.User.OptionsToken
	c.loggedIn = true

	return nil
}

func (c *Client) GetMetadata(
	ctx context.Context,
	mediaType client.MediaType,
	id string,
) (*client.MetadataResult, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("deezer: %w", client.ErrNotLoggedIn)
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
		return nil, fmt.Errorf("deezer: %w: label", client.ErrUnknownMediaType)
	default:
		return nil, fmt.Errorf("deezer: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

func (c *Client) getTrack(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto deezerTrack
	if err := c.publicGet(ctx, "/track/"+id, &dto); err != nil {
		return nil, fmt.Errorf("deezer: failed to fetch track %s: %w", id, err)
	}

	album := dto.Album.toMetadata()
	track := dto.toMetadata(album)

	return &client.MetadataResult{Track: track}, nil
}

func (c *Client) getAlbum(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto deezerAlbum
	if err := c.publicGet(ctx, "/album/"+id, &dto); err != nil {
		return nil, fmt.Errorf("deezer: failed to fetch album %s: %w", id, err)
	}

	return &client.MetadataResult{Album: dto.toMetadata()}, nil
}

func (c *Client) getArtist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto deezerArtist

	if err := c.publicGet(ctx, "/artist/"+id, &dto); err != nil {
		return nil, fmt.Errorf("deezer: failed to fetch artist %s: %w", id, err)
	}

	var albums struct {
		Data []deezerAlbum `json:"data"`
	}

	if err := c.publicGet(ctx, "/artist/"+id+"/albums", &albums); err != nil {
		return nil, fmt.Errorf("deezer: failed to fetch artist %s albums: %w", id, err)
	}

	dto.Albums = albums.Data

	return &client.MetadataResult{Artist: dto.toMetadata()}, nil
}

func (c *Client) getPlaylist(ctx context.Context, id string) (*client.MetadataResult, error) {
	var dto deezerPlaylist
	if err := c.publicGet(ctx, "/playlist/"+id, &dto); err != nil {
		return nil, fmt.Errorf("deezer: failed to fetch playlist %s: %w", id, err)
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
		return nil, fmt.Errorf("deezer: %w", client.ErrNotLoggedIn)
	}

	endpoint, err := searchEndpoint(mediaType)
	if err != nil {
		return nil, err
	}

	var resp deezerSearchResponse
	if err = c.publicGet(ctx, endpoint+"?q="+url.QueryEscape(query)+"&limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, fmt.Errorf("deezer: search failed: %w", err)
	}

	return resp.toSearchResults(sourceName, mediaType), nil
}

func searchEndpoint(mediaType client.MediaType) (string, error) {
	switch mediaType {
	case client.MediaTypeTrack:
		return "/search/track", nil
	case client.MediaTypeAlbum:
		return "/search/album", nil
	case client.MediaTypeArtist:
		return "/search/artist", nil
	case client.MediaTypePlaylist:
		return "/search/playlist", nil
	default:
		return "", fmt.Errorf("deezer: %w: %s", client.ErrUnknownMediaType, mediaType)
	}
}

// GetFeatured resolves one of Deezer's editorial charts (e.g. "0" for the
// global chart playlist ID conventionally used by the public API).
func (c *Client) GetFeatured(ctx context.Context, selector string) (*metadata.SearchResults, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("deezer: %w", client.ErrNotLoggedIn)
	}

	var resp struct {
		Tracks struct {
			Data []deezerTrack `json:"data"`
		} `json:"tracks"`
	}

	if err := c.publicGet(ctx, "/chart/"+selector, &resp); err != nil {
		return nil, fmt.Errorf("deezer: %w: %s: %w", client.ErrUnknownFeaturedSelector, selector, err)
	}

	results := &metadata.SearchResults{Source: sourceName, MediaType: string(client.MediaTypeTrack)}
	for _, t := range resp.Tracks.Data {
		results.Items = append(results.Items, metadata.SearchResultItem{
			ID: strconv.FormatInt(t.ID, 10), Title: t.Title, Artist: t.Artist.Name,
		})
	}

	return results, nil
}

// GetDownloadable resolves the track's decryption key and CDN media URL;
// the actual Blowfish chunk descrambling is out of this module's scope, so
// the returned Downloadable reports ErrNotImplemented on Download.
func (c *Client) GetDownloadable(ctx context.Context, id string, quality uint8) (client.Downloadable, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("deezer: %w", client.ErrNotLoggedIn)
	}

	format, ok := qualityFormats[quality]
	if !ok {
		format = qualityFormats[1]
	}

	var resp struct {
		Data []struct {
			Media []struct {
				URL string `json:"url"`
			} `json:"media"`
		} `json:"data"`
	}

	body := map[string]any{
		"track_tokens":  []string{id},
		"license_token": c.licenseToken,
		"media": []map[string]any{{
			"type":    "FULL",
			"formats": []map[string]string{{"cipher": "BF_CBC_STRIPE", "format": format}},
		}},
	}

	if err := c.mediaCall(ctx, body, &resp); err != nil {
		return nil, fmt.Errorf("deezer: failed to resolve stream for track %s: %w", id, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Media) == 0 {
		return nil, fmt.Errorf("deezer: track %s: %w", id, client.ErrNonStreamable)
	}

	ext := ".mp3"
	if format == "FLAC" {
		ext = ".flac"
	}

	return &client.BlowfishDownloadable{FileExtension: ext, DecryptionKey: c.licenseToken}, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) publicGet(ctx context.Context, path string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, publicAPIURL+path, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// gwCall invokes one private gw-light.php method, authenticated via the ARL
// cookie sent in each request's Cookie header.
func (c *Client) gwCall(ctx context.Context, method string, body any, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	values := url.Values{"method": {method}, "input": {"3"}, "api_version": {"1.0"}, "api_token": {c.apiToken}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, privateAPIURL+"?"+values.Encode(), http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Cookie", "arl="+c.creds.ARL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) mediaCall(ctx context.Context, body any, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, "https://media.deezer.com/v1/get_url", bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
