// Package lastfm scrapes a public Last.fm playlist page for its (artist,
// title) tracklist. Last.fm exposes no public playlist API, so this walks
// the rendered page's DOM with golang.org/x/net/html, using a tokenizer
// instead of a regex scrape.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/oshokin/crateflow/internal/pending"
)

// ErrNoTracksFound is returned when a playlist page parses without error but
// contains no recognizable track rows.
var ErrNoTracksFound = errors.New("no tracks found on last.fm playlist page")

// Scraper fetches and parses Last.fm playlist pages.
type Scraper struct {
	httpClient *http.Client
}

// New builds a Scraper using httpClient for page fetches.
func New(httpClient *http.Client) *Scraper {
	return &Scraper{httpClient: httpClient}
}

// Fetch downloads playlistURL and returns its <title>-derived playlist name
// alongside the scraped (artist, title) tracklist.
func (s *Scraper) Fetch(ctx context.Context, playlistURL string) (string, []pending.LastfmEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, http.NoBody)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build last.fm request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch last.fm playlist page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close after a read-to-completion is not actionable.

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("last.fm playlist page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read last.fm playlist page: %w", err)
	}

	name, entries, err := parsePlaylistPage(body)
	if err != nil {
		return "", nil, err
	}

	return name, entries, nil
}

// parsePlaylistPage walks the DOM looking for the page title and every
// element carrying both a track-name and an artist-name data attribute,
// Last.fm's own markup convention for rendering a tracklist row.
func parsePlaylistPage(body []byte) (string, []pending.LastfmEntry, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))

	var (
		name       string
		entries    []pending.LastfmEntry
		inTitleTag bool
	)

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if !errors.Is(tokenizer.Err(), io.EOF) {
				return "", nil, fmt.Errorf("failed to parse last.fm playlist page: %w", tokenizer.Err())
			}

			if len(entries) == 0 {
				return "", nil, ErrNoTracksFound
			}

			return name, entries, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()

			switch token.Data {
			case "title":
				inTitleTag = tokenType == html.StartTagToken
			default:
				if artist, title, ok := trackRowAttrs(token); ok {
					entries = append(entries, pending.LastfmEntry{Artist: artist, Title: title})
				}
			}

		case html.TextToken:
			if inTitleTag {
				name = strings.TrimSpace(string(tokenizer.Text()))
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == "title" {
				inTitleTag = false
			}
		}
	}
}

// trackRowAttrs extracts a (artist, title) pair from an element's
// data-artist-name/data-track-name attributes, Last.fm's row markup.
func trackRowAttrs(token html.Token) (artist, title string, ok bool) {
	for _, attr := range token.Attr {
		switch attr.Key {
		case "data-artist-name":
			artist = attr.Val
		case "data-track-name":
			title = attr.Val
		}
	}

	return artist, title, artist != "" && title != ""
}
