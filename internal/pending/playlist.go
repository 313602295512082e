package pending

import (
	"context"
	"fmt"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/media"
)

// PlaylistRef is an unresolved playlist reference on a single source;
// Resolve fetches the playlist's track list and builds one media.Playlist
// with a Resolver per track, batched by media.Playlist.Rip itself.
type PlaylistRef struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *PlaylistRef) Resolve(ctx context.Context) (media.Media, error) {
	result, err := p.Client.GetMetadata(ctx, client.MediaTypePlaylist, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s/%s: %w", p.Client.Source(), p.ID, err)
	}

	meta := result.Playlist
	if meta == nil {
		return nil, fmt.Errorf("%s: playlist metadata missing for %s", p.Client.Source(), p.ID)
	}

	tracks := make([]media.Resolver, 0, len(meta.Tracks))
	for _, ref := range meta.Tracks {
		tracks = append(tracks, (&PlaylistTrack{Client: p.Client, Deps: p.Deps, ID: ref.ID, Quality: p.Quality}).Resolve)
	}

	return &media.Playlist{Deps: p.Deps, Name: meta.Name, Tracks: tracks}, nil
}

// PlaylistTrack resolves one playlist entry. It may be bound to a different
// source's Client than the playlist's owner, since a Last.fm fallback hit
// can land on either the primary or the fallback source (spec §4.3
// "PendingPlaylistTrack").
type PlaylistTrack struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *PlaylistTrack) Resolve(ctx context.Context) (media.Media, error) {
	return (&Single{Client: p.Client, Deps: p.Deps, ID: p.ID, Quality: p.Quality}).Resolve(ctx)
}

// LastfmPlaylist resolves a scraped Last.fm (artist, title) tracklist by
// searching each entry on a primary source, falling back to a second source
// on an empty hit or a search error (Open Question (c): any search failure
// is treated the same as "no match" and triggers the fallback, since a
// listener has no way to tell the two apart from the playlist's perspective).
type LastfmPlaylist struct {
	Name           string
	Entries        []LastfmEntry
	PrimaryClient  client.Client
	FallbackClient client.Client
	Deps           *media.Deps
	Quality        uint8
}

// LastfmEntry is one scraped (artist, title) pair from a Last.fm playlist
// page.
type LastfmEntry struct {
	Artist string
	Title  string
}

func (p *LastfmPlaylist) Resolve(ctx context.Context) (media.Media, error) {
	tracks := make([]media.Resolver, 0, len(p.Entries))

	for _, entry := range p.Entries {
		tracks = append(tracks, p.resolveEntry(entry))
	}

	return &media.Playlist{Deps: p.Deps, Name: p.Name, Tracks: tracks}, nil
}

func (p *LastfmPlaylist) resolveEntry(entry LastfmEntry) media.Resolver {
	return func(ctx context.Context) (media.Media, error) {
		query := entry.Artist + " " + entry.Title

		cl, id := p.firstHit(ctx, p.PrimaryClient, query)
		if cl == nil && p.FallbackClient != nil {
			cl, id = p.firstHit(ctx, p.FallbackClient, query)
		}

		if cl == nil {
			return nil, fmt.Errorf("no match found for %q on any configured source", query)
		}

		return (&PlaylistTrack{Client: cl, Deps: p.Deps, ID: id, Quality: p.Quality}).Resolve(ctx)
	}
}

// firstHit returns the source and id of the first search result for query on
// cl, or (nil, "") on an empty result set or a search error.
func (p *LastfmPlaylist) firstHit(ctx context.Context, cl client.Client, query string) (client.Client, string) {
	if cl == nil {
		return nil, ""
	}

	results, err := cl.Search(ctx, client.MediaTypeTrack, query, 1)
	if err != nil || results == nil {
		return nil, ""
	}

	id, ok := results.FirstID()
	if !ok {
		return nil, ""
	}

	return cl, id
}
