// Package pending implements the unresolved-reference side of the
// Pending↔Media split (spec §9): each Pending variant's Resolve method
// fetches metadata through a Client and builds the matching media.Media
// value. This package depends on internal/media; media never depends back
// on this package, so the reference cycle the source language papers over
// with TYPE_CHECKING/in-function imports does not exist here.
package pending

import (
	"context"
	"fmt"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/ledger"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/media"
	"github.com/oshokin/crateflow/internal/metadata"
)

// Pending is an unresolved reference. Resolve returns (nil, nil) to mean
// "nothing to do" — an already-completed id, a track whose metadata could
// not be built, or a deliberate skip. The album, artist, label and playlist
// variants return their metadata errors instead; callers log and drop them,
// so neither case fails the batch.
type Pending interface {
	Resolve(ctx context.Context) (media.Media, error)
}

// Factory builds the Pending matching mediaType, the systems-language
// replacement for the source's string-keyed create_pending_item dispatch
// (spec §9 "Factory by string"). Fails loudly on an unrecognized mediaType
// (spec §7 "Format errors are programmer errors").
func Factory(
	mediaType client.MediaType,
	id string,
	c client.Client,
	deps *media.Deps,
	quality uint8,
) (Pending, error) {
	switch mediaType {
	case client.MediaTypeTrack:
		return &Single{Client: c, Deps: deps, ID: id, Quality: quality}, nil
	case client.MediaTypeAlbum:
		return &AlbumRef{Client: c, Deps: deps, ID: id, Quality: quality}, nil
	case client.MediaTypeArtist:
		return &ArtistRef{Client: c, Deps: deps, ID: id, Quality: quality}, nil
	case client.MediaTypeLabel:
		return &LabelRef{Client: c, Deps: deps, ID: id, Quality: quality}, nil
	case client.MediaTypePlaylist:
		return &PlaylistRef{Client: c, Deps: deps, ID: id, Quality: quality}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMediaType, mediaType)
	}
}

// ErrUnknownMediaType is returned by Factory for any mediaType not in the
// exhaustive switch above (spec §8 property 7 "Factory totality").
var ErrUnknownMediaType = client.ErrUnknownMediaType

// Single is a standalone track reference (not part of an album/playlist
// context in this run).
type Single struct {
	Client  client.Client
	Deps    *media.Deps
	ID      string
	Quality uint8
}

func (p *Single) Resolve(ctx context.Context) (media.Media, error) {
	entry := ledger.Entry{Source: p.Client.Source(), MediaType: "track", ID: p.ID}

	if done, err := p.Deps.Ledger.Completed.Contains(ctx, entry); err == nil && done {
		return nil, nil //nolint:nilnil // Ledger idempotence: already completed, nothing to resolve.
	}

	result, err := p.Client.GetMetadata(ctx, client.MediaTypeTrack, p.ID)
	if err != nil {
		logger.Errorf(ctx, "Failed to fetch track %s/%s: %v", p.Client.Source(), p.ID, err)
		return nil, nil //nolint:nilnil // Metadata-build errors collapse to "nothing to resolve", not fatal.
	}

	track, err := buildTrack(ctx, p.Client, p.Deps, result.Track, "", p.Quality, true)
	if err != nil {
		logger.Errorf(ctx, "Failed to build track %s/%s: %v", p.Client.Source(), p.ID, err)
		return nil, nil //nolint:nilnil // Same as above.
	}

	return track, nil
}

// Track resolves one track within a known album context, inheriting the
// album's folder and cover path.
type Track struct {
	Client    client.Client
	Deps      *media.Deps
	ID        string
	Quality   uint8
	Folder    string
	CoverPath string
}

func (p *Track) Resolve(ctx context.Context) (media.Media, error) {
	entry := ledger.Entry{Source: p.Client.Source(), MediaType: "track", ID: p.ID}

	if done, err := p.Deps.Ledger.Completed.Contains(ctx, entry); err == nil && done {
		return nil, nil //nolint:nilnil // Ledger idempotence.
	}

	result, err := p.Client.GetMetadata(ctx, client.MediaTypeTrack, p.ID)
	if err != nil {
		logger.Errorf(ctx, "Failed to fetch track %s/%s: %v", p.Client.Source(), p.ID, err)
		return nil, nil //nolint:nilnil // Metadata errors drop the item.
	}

	track, err := buildTrack(ctx, p.Client, p.Deps, result.Track, p.Folder, p.Quality, false)
	if err != nil {
		logger.Errorf(ctx, "Failed to build track %s/%s: %v", p.Client.Source(), p.ID, err)
		return nil, nil //nolint:nilnil // Same as above.
	}

	track.CoverPath = p.CoverPath

	return track, nil
}

func buildTrack(
	ctx context.Context,
	c client.Client,
	deps *media.Deps,
	meta *metadata.TrackMetadata,
	folder string,
	quality uint8,
	isSingle bool,
) (*media.Track, error) {
	if meta == nil {
		return nil, fmt.Errorf("%s: track metadata missing", c.Source())
	}

	downloadable, err := c.GetDownloadable(ctx, meta.ID, quality)
	if err != nil {
		return nil, err
	}

	if folder == "" {
		var albumFolderName string

		if meta.Album != nil {
			albumFolderName = deps.Formatter.FolderName(ctx, meta.Album.Tags())
		}

		folder = albumFolder(deps.Config, c.Source(), albumFolderName)
	}

	return &media.Track{
		Deps:         deps,
		Meta:         meta,
		Downloadable: downloadable,
		Folder:       folder,
		IsSingle:     isSingle,
	}, nil
}

// albumFolder resolves a track/album's destination directory, optionally
// nesting it under a per-source subdirectory. Open Question (a): the source
// capitalizes the source name only in this mode; this implementation does
// the same for consistency with output seen in other modes.
func albumFolder(cfg *config.Config, source, albumFolderName string) string {
	base := cfg.Downloads.Folder

	if cfg.Downloads.SourceSubdirectories {
		base = base + "/" + capitalize(source)
	}

	if albumFolderName != "" {
		base = base + "/" + albumFolderName
	}

	return base
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return string(s[0]-('a'-'A')) + s[1:]
}
