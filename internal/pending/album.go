package pending

import (
	"context"
	"fmt"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/media"
)

// AlbumRef is an unresolved album reference; Resolve fetches the album and
// its track ids, then builds one media.Album with a Resolver per track.
type AlbumRef struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *AlbumRef) Resolve(ctx context.Context) (media.Media, error) {
	result, err := p.Client.GetMetadata(ctx, client.MediaTypeAlbum, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album %s/%s: %w", p.Client.Source(), p.ID, err)
	}

	meta := result.Album
	if meta == nil {
		return nil, fmt.Errorf("%s: album metadata missing for %s", p.Client.Source(), p.ID)
	}

	folderName := p.Deps.Formatter.FolderName(ctx, meta.Tags())
	folder := albumFolder(p.Deps.Config, p.Client.Source(), folderName)

	coverPath := resolveAlbumCover(ctx, p.Deps, meta.ID, meta.Covers.Small, meta.Covers.Large)

	tracks := make([]media.Resolver, 0, len(meta.TrackIDs))
	for _, trackID := range meta.TrackIDs {
		tracks = append(tracks, (&Track{
			Client:    p.Client,
			Deps:      p.Deps,
			ID:        trackID,
			Quality:   p.Quality,
			Folder:    folder,
			CoverPath: coverPath,
		}).Resolve)
	}

	return &media.Album{Deps: p.Deps, Meta: meta, Tracks: tracks}, nil
}

// resolveAlbumCover downloads and memoizes the album's cover art through the
// shared artwork cache, returning the embed-sized image path (empty on any
// failure, which is logged and otherwise ignored so a tagging problem never
// blocks the album's tracks from downloading).
func resolveAlbumCover(ctx context.Context, deps *media.Deps, albumID, smallURL, largeURL string) string {
	if deps.Artwork == nil || smallURL == "" {
		return ""
	}

	set, err := deps.Artwork.Get(ctx, albumID, smallURL, largeURL, deps.Config.Artwork.SaveHiRes)
	if err != nil {
		logger.Errorf(ctx, "Failed to fetch artwork for album %s: %v", albumID, err)
		return ""
	}

	return set.EmbedPath
}
