// Package media implements the resolved, three-phase (preprocess, download,
// postprocess) lifecycle every downloadable item goes through, plus the
// global download semaphore that bounds concurrent body transfers (spec §4.4,
// §5).
//
// Resolver is the seam that breaks the Pending↔Media type cycle (spec §9
// "Cyclic type reference"): internal/pending depends on this package to
// build the Media variants below, but this package never depends back on
// internal/pending — an unresolved child is represented as a plain function
// rather than a Pending value, so the dependency runs one way only.
package media

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/oshokin/crateflow/internal/artwork"
	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/converter"
	"github.com/oshokin/crateflow/internal/ledger"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/metadata"
	"github.com/oshokin/crateflow/internal/progress"
	"github.com/oshokin/crateflow/internal/tag"
)

// Media is a resolved, downloadable unit.
type Media interface {
	// Rip runs preprocess, then download, then postprocess, in that fixed
	// order (spec §4.4). It never returns an error to its caller: every
	// failure is absorbed and logged, and a terminal download failure is
	// also recorded in the failed ledger, so that one bad item never cancels
	// its siblings (spec §7 "Propagation policy").
	Rip(ctx context.Context)
}

// Resolver produces a Media (or nil, nil to mean "skip") from an
// as-yet-unresolved child reference. internal/pending's Pending.Resolve
// methods are adapted to this signature when building Album/Playlist/
// Artist/Label's children.
type Resolver func(ctx context.Context) (Media, error)

// Deps bundles the shared collaborators every Media variant needs. One Deps
// is built by the orchestrator and threaded through every Pending/Media
// constructor; Media never owns any of it.
type Deps struct {
	Config    *config.Config
	Formatter *metadata.PathFormatter
	TagWriter *tag.Writer
	Converter *converter.Converter
	Artwork   *artwork.Cache
	Progress  *progress.Manager
	Ledger    *ledger.Database
	Semaphore downloadSemaphore
}

// NewDeps builds a Deps with a download semaphore sized per
// cfg.Downloads.MaxConnections.
func NewDeps(
	cfg *config.Config,
	formatter *metadata.PathFormatter,
	tagWriter *tag.Writer,
	conv *converter.Converter,
	artworkCache *artwork.Cache,
	progressManager *progress.Manager,
	ledgerDB *ledger.Database,
) *Deps {
	return &Deps{
		Config:    cfg,
		Formatter: formatter,
		TagWriter: tagWriter,
		Converter: conv,
		Artwork:   artworkCache,
		Progress:  progressManager,
		Ledger:    ledgerDB,
		Semaphore: newDownloadSemaphore(cfg.Downloads.MaxConnections),
	}
}

// Track is one resolved audio file.
type Track struct {
	Deps *Deps

	Meta         *metadata.TrackMetadata
	Downloadable client.Downloadable
	Folder       string
	CoverPath    string
	IsSingle     bool

	downloadPath string
}

// ErrDownloadFailed is the terminal error recorded to the failed ledger
// after both download attempts fail (spec §4.5 "Retry cap").
var ErrDownloadFailed = errors.New("track download failed after retry")

func (t *Track) Rip(ctx context.Context) {
	t.preprocess(ctx)

	if !t.download(ctx) {
		return // Open Question (b): a terminal download failure skips postprocess entirely.
	}

	t.postprocess(ctx)
}

func (t *Track) preprocess(ctx context.Context) {
	tags := t.Meta.Tags()
	filename := t.Deps.Formatter.TrackFilename(ctx, tags) + t.Downloadable.Extension()
	t.downloadPath = filepath.Join(t.Folder, filename)

	title := t.Meta.Title
	if t.IsSingle {
		t.Deps.Progress.AddTitle(title, 0)
	}
}

// download runs Downloadable.Download at most twice, acquiring the global
// semaphore for the duration of the body transfer (spec §5 cap 1). Returns
// false when the track is already in the completed ledger, when ctx ends
// before a semaphore slot is free, or when both attempts failed; only the
// last case is recorded in the failed ledger.
func (t *Track) download(ctx context.Context) bool {
	entry := ledger.Entry{Source: t.Meta.Source, MediaType: "track", ID: t.Meta.ID}

	if contains, err := t.Deps.Ledger.Completed.Contains(ctx, entry); err == nil && contains {
		return false // Ledger idempotence (spec §8 property 1): already ripped, nothing to do.
	}

	if err := t.Deps.Semaphore.Acquire(ctx); err != nil {
		return false
	}
	defer t.Deps.Semaphore.Release()

	progressTitle := t.Meta.Title

	attempt := func() error {
		return t.Downloadable.Download(ctx, t.downloadPath, func(transferred int64) {
			if t.IsSingle {
				t.Deps.Progress.Update(progressTitle, transferred)
			}
		})
	}

	err := attempt()
	if err != nil {
		logger.Warnf(ctx, "First download attempt failed for %s/%s: %v", t.Meta.Source, t.Meta.ID, err)
		err = attempt()
	}

	if err != nil {
		logger.Errorf(ctx, "Download failed for %s/%s after retry: %v", t.Meta.Source, t.Meta.ID, err)

		if markErr := t.Deps.Ledger.Failed.MarkFailed(ctx, entry, err.Error()); markErr != nil {
			logger.Errorf(ctx, "Failed to record failed download in ledger: %v", markErr)
		}

		return false
	}

	return true
}

func (t *Track) postprocess(ctx context.Context) {
	if t.IsSingle {
		t.Deps.Progress.RemoveTitle(t.Meta.Title)
	}

	format, ok := tag.FormatFromExtension(t.Downloadable.Extension())
	if ok {
		writeErr := t.Deps.TagWriter.Write(ctx, &tag.WriteRequest{
			TrackPath:    t.downloadPath,
			CoverPath:    t.CoverPath,
			Format:       format,
			Tags:         t.Meta.Tags(),
			EmbedArtwork: t.CoverPath != "" && t.Deps.Config.Artwork.EmbedSize != "",
		})
		if writeErr != nil {
			logger.Errorf(ctx, "Failed to write tags for %s: %v", t.downloadPath, writeErr)
		}
	}

	if t.Deps.Config.Conversion.Enabled && t.Deps.Converter != nil {
		converted, convErr := t.Deps.Converter.Convert(ctx, t.downloadPath)
		if convErr != nil {
			logger.Errorf(ctx, "Conversion failed for %s: %v", t.downloadPath, convErr)
		} else {
			t.downloadPath = converted
		}
	}

	entry := ledger.Entry{Source: t.Meta.Source, MediaType: "track", ID: t.Meta.ID}
	if err := t.Deps.Ledger.Completed.MarkCompleted(ctx, entry); err != nil {
		logger.Errorf(ctx, "Failed to record completed download in ledger: %v", err)
	}
}

// Album fans out over its (as yet unresolved) track children.
type Album struct {
	Deps   *Deps
	Meta   *metadata.AlbumMetadata
	Tracks []Resolver
}

func (a *Album) Rip(ctx context.Context) {
	a.Deps.Progress.AddTitle(a.Meta.Title, 0)
	defer a.Deps.Progress.RemoveTitle(a.Meta.Title)

	fanOut(ctx, a.Tracks)
}

// Playlist fans out over its track children in fixed-size batches, capping
// concurrent metadata-resolution work independently of the download
// semaphore (spec §5 cap 3).
type Playlist struct {
	Deps   *Deps
	Name   string
	Tracks []Resolver
}

func (p *Playlist) Rip(ctx context.Context) {
	p.Deps.Progress.AddTitle(p.Name, 0)
	defer p.Deps.Progress.RemoveTitle(p.Name)

	batchSize := config.PlaylistBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(p.Tracks); start += batchSize {
		end := start + batchSize
		if end > len(p.Tracks) {
			end = len(p.Tracks)
		}

		fanOut(ctx, p.Tracks[start:end])
	}
}

// Artist fans out over its (as yet unresolved) album children.
type Artist struct {
	Deps   *Deps
	Meta   *metadata.ArtistMetadata
	Albums []Resolver
}

func (a *Artist) Rip(ctx context.Context) {
	fanOut(ctx, a.Albums)
}

// Label fans out over its (as yet unresolved) album children.
type Label struct {
	Deps   *Deps
	Meta   *metadata.LabelMetadata
	Albums []Resolver
}

func (l *Label) Rip(ctx context.Context) {
	fanOut(ctx, l.Albums)
}

// fanOut resolves and rips every child concurrently, isolating each child's
// error so one failure never cancels its siblings (spec §7, §8 property 3).
func fanOut(ctx context.Context, children []Resolver) {
	var wg sync.WaitGroup

	for _, resolve := range children {
		wg.Add(1)

		go func(resolve Resolver) {
			defer wg.Done()

			m, err := resolve(ctx)
			if err != nil {
				logger.Errorf(ctx, "Failed to resolve child item: %v", err)
				return
			}

			if m == nil {
				return
			}

			m.Rip(ctx)
		}(resolve)
	}

	wg.Wait()
}
