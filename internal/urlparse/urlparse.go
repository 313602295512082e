// Package urlparse recognizes which source and media type a user-supplied
// reference names, and expands any .txt arguments into the URLs they list.
// Grounded on the teacher's URLProcessor: a pattern table matched in order,
// generalized from one source's four categories to five sources' media
// types plus the dedicated Last.fm playlist case.
package urlparse

import (
	"regexp"
	"strings"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/utils"
)

const textFileExtension = ".txt"

// Reference is one parsed user-supplied item: either a (source, mediaType,
// id) triple, or a Last.fm playlist URL to be scraped rather than resolved
// through a Client.GetMetadata call.
type Reference struct {
	Source      string
	MediaType   client.MediaType
	ID          string
	IsLastfmURL bool
	LastfmURL   string
}

var patterns = []struct {
	Host      *regexp.Regexp
	Path      *regexp.Regexp
	Source    string
	MediaType client.MediaType
}{
	{regexp.MustCompile(`qobuz\.com`), regexp.MustCompile(`/track/(?:[\w-]+/)?(?P<ID>[\w-]+)$`), config.SourceQobuz, client.MediaTypeTrack},
	{regexp.MustCompile(`qobuz\.com`), regexp.MustCompile(`/album/(?:[\w-]+/)?(?P<ID>[\w-]+)$`), config.SourceQobuz, client.MediaTypeAlbum},
	{regexp.MustCompile(`qobuz\.com`), regexp.MustCompile(`/label/(?:[\w-]+/)?(?P<ID>[\w-]+)$`), config.SourceQobuz, client.MediaTypeLabel},
	{regexp.MustCompile(`qobuz\.com`), regexp.MustCompile(`/artist/(?:[\w-]+/)?(?P<ID>[\w-]+)$`), config.SourceQobuz, client.MediaTypeArtist},
	{regexp.MustCompile(`qobuz\.com`), regexp.MustCompile(`/playlist/(?:[\w-]+/)?(?P<ID>[\w-]+)$`), config.SourceQobuz, client.MediaTypePlaylist},

	{regexp.MustCompile(`tidal\.com`), regexp.MustCompile(`/track/(?P<ID>[\w-]+)$`), config.SourceTidal, client.MediaTypeTrack},
	{regexp.MustCompile(`tidal\.com`), regexp.MustCompile(`/album/(?P<ID>[\w-]+)$`), config.SourceTidal, client.MediaTypeAlbum},
	{regexp.MustCompile(`tidal\.com`), regexp.MustCompile(`/artist/(?P<ID>[\w-]+)$`), config.SourceTidal, client.MediaTypeArtist},
	{regexp.MustCompile(`tidal\.com`), regexp.MustCompile(`/playlist/(?P<ID>[\w-]+)$`), config.SourceTidal, client.MediaTypePlaylist},

	{regexp.MustCompile(`deezer\.com`), regexp.MustCompile(`/track/(?P<ID>[\w-]+)$`), config.SourceDeezer, client.MediaTypeTrack},
	{regexp.MustCompile(`deezer\.com`), regexp.MustCompile(`/album/(?P<ID>[\w-]+)$`), config.SourceDeezer, client.MediaTypeAlbum},
	{regexp.MustCompile(`deezer\.com`), regexp.MustCompile(`/artist/(?P<ID>[\w-]+)$`), config.SourceDeezer, client.MediaTypeArtist},
	{regexp.MustCompile(`deezer\.com`), regexp.MustCompile(`/playlist/(?P<ID>[\w-]+)$`), config.SourceDeezer, client.MediaTypePlaylist},

	{regexp.MustCompile(`soundcloud\.com`), regexp.MustCompile(`/[\w-]+/sets/(?P<ID>[\w-]+)$`), config.SourceSoundCloud, client.MediaTypePlaylist},
	{regexp.MustCompile(`soundcloud\.com`), regexp.MustCompile(`/(?P<ID>[\w-]+/[\w-]+)$`), config.SourceSoundCloud, client.MediaTypeTrack},
}

var lastfmHost = regexp.MustCompile(`last\.fm`)

// Expand reads every .txt argument in urls and splices in its unique lines,
// preserving order and deduplicating across the whole input.
func Expand(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	expanded := make([]string, 0, len(urls))

	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}

		seen[u] = struct{}{}

		expanded = append(expanded, u)
	}

	for _, u := range urls {
		if !strings.HasSuffix(u, textFileExtension) {
			add(u)
			continue
		}

		lines, err := utils.ReadUniqueLinesFromFile(u)
		if err != nil {
			return nil, err
		}

		for _, line := range lines {
			add(line)
		}
	}

	return expanded, nil
}

// Parse recognizes url's source and media type, or reports it as a
// Last.fm playlist URL to be scraped instead. Returns ok=false for an
// unrecognized URL.
func Parse(url string) (Reference, bool) {
	if lastfmHost.MatchString(url) {
		return Reference{IsLastfmURL: true, LastfmURL: url}, true
	}

	for _, p := range patterns {
		if !p.Host.MatchString(url) {
			continue
		}

		if id := utils.ExtractNamedGroup(p.Path, "ID", url); id != "" {
			return Reference{Source: p.Source, MediaType: p.MediaType, ID: id}, true
		}
	}

	return Reference{}, false
}
