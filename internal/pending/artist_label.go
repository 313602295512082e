package pending

import (
	"context"
	"fmt"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/media"
)

// ArtistRef is an unresolved artist catalog reference; Resolve fetches the
// artist's album ids and builds one media.Artist with a Resolver per album.
type ArtistRef struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *ArtistRef) Resolve(ctx context.Context) (media.Media, error) {
	result, err := p.Client.GetMetadata(ctx, client.MediaTypeArtist, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artist %s/%s: %w", p.Client.Source(), p.ID, err)
	}

	meta := result.Artist
	if meta == nil {
		return nil, fmt.Errorf("%s: artist metadata missing for %s", p.Client.Source(), p.ID)
	}

	albums := make([]media.Resolver, 0, len(meta.AlbumIDs))
	for _, albumID := range meta.AlbumIDs {
		albums = append(albums, (&AlbumRef{Client: p.Client, Deps: p.Deps, ID: albumID, Quality: p.Quality}).Resolve)
	}

	return &media.Artist{Deps: p.Deps, Meta: meta, Albums: albums}, nil
}

// LabelRef is an unresolved label catalog reference; Resolve fetches the
// label's album ids and builds one media.Label with a Resolver per album.
type LabelRef struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *LabelRef) Resolve(ctx context.Context) (media.Media, error) {
	result, err := p.Client.GetMetadata(ctx, client.MediaTypeLabel, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch label %s/%s: %w", p.Client.Source(), p.ID, err)
	}

	meta := result.Label
	if meta == nil {
		return nil, fmt.Errorf("%s: label metadata missing for %s", p.Client.Source(), p.ID)
	}

	albums := make([]media.Resolver, 0, len(meta.AlbumIDs))
	for _, albumID := range meta.AlbumIDs {
		albums = append(albums, (&AlbumRef{Client: p.Client, Deps: p.Deps, ID: albumID, Quality: p.Quality}).Resolve)
	}

	return &media.Label{Deps: p.Deps, Meta: meta, Albums: albums}, nil
}
