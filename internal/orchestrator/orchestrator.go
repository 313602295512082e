// Package orchestrator owns a run end to end: per-source clients, the
// pending and resolved media lists, and the Resolve and Rip passes that act
// on them. Grounded on the teacher's top-level
// Service, generalized from one source to four plus Last.fm (spec.md §4.6).
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/oshokin/crateflow/internal/artwork"
	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/client/deezer"
	"github.com/oshokin/crateflow/internal/client/qobuz"
	"github.com/oshokin/crateflow/internal/client/soundcloud"
	"github.com/oshokin/crateflow/internal/client/tidal"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/converter"
	"github.com/oshokin/crateflow/internal/lastfm"
	"github.com/oshokin/crateflow/internal/ledger"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/media"
	"github.com/oshokin/crateflow/internal/metadata"
	"github.com/oshokin/crateflow/internal/pending"
	"github.com/oshokin/crateflow/internal/progress"
	"github.com/oshokin/crateflow/internal/tag"
	"github.com/oshokin/crateflow/internal/urlparse"
)

// Orchestrator owns every stateful collaborator for one run and the two
// pipelines (pending→media resolution, media ripping) built from them.
type Orchestrator struct {
	cfg *config.Config

	clientsMu sync.Mutex
	clients   map[string]client.Client

	pendingMu   sync.Mutex
	pendingList []pending.Pending

	mediaMu   sync.Mutex
	mediaList []media.Media

	deps    *media.Deps
	ledger  *ledger.Database
	scraper *lastfm.Scraper
}

// New builds an Orchestrator, eagerly constructing (but not logging in) a
// client for each of the four sources, per spec.md §4.6 ("created eagerly
// for all sources; logged in lazily").
func New(ctx context.Context, cfg *config.Config) (*Orchestrator, error) {
	ledgerDB, err := ledger.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	conv, err := converter.New(cfg.Conversion)
	if err != nil && cfg.Conversion.Enabled {
		logger.Warnf(ctx, "Conversion is enabled but ffmpeg is unavailable: %v", err)
		conv = nil
	}

	artworkCache, err := artwork.New(http.DefaultClient, artworkCacheSize)
	if err != nil {
		ledgerDB.Close() //nolint:errcheck // Best-effort cleanup on init failure.
		return nil, fmt.Errorf("failed to initialize artwork cache: %w", err)
	}

	deps := media.NewDeps(
		cfg,
		metadata.NewPathFormatter(ctx, cfg),
		tag.NewWriter(),
		conv,
		artworkCache,
		progress.New(cfg.CLI.ProgressBars),
		ledgerDB,
	)

	return &Orchestrator{
		cfg: cfg,
		clients: map[string]client.Client{
			config.SourceQobuz:      qobuz.New(cfg),
			config.SourceTidal:      tidal.New(cfg),
			config.SourceDeezer:     deezer.New(cfg),
			config.SourceSoundCloud: soundcloud.New(cfg),
		},
		deps:    deps,
		ledger:  ledgerDB,
		scraper: lastfm.New(http.DefaultClient),
	}, nil
}

// artworkCacheSize bounds the number of distinct albums whose artwork is
// held on disk concurrently during a run.
const artworkCacheSize = 64

// GetLoggedInClient returns the Client for source, logging in first if
// necessary. Serialized per-Orchestrator so two goroutines resolving items
// on the same source never race a credential prompt or double-login
// (spec.md §4.6).
func (o *Orchestrator) GetLoggedInClient(ctx context.Context, source string) (client.Client, error) {
	o.clientsMu.Lock()
	defer o.clientsMu.Unlock()

	cl, ok := o.clients[source]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", source)
	}

	if cl.LoggedIn() {
		return cl, nil
	}

	if err := cl.Login(ctx); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", source, err)
	}

	return cl, nil
}

// AddAll parses every url (expanding any .txt file arguments first) and
// enqueues each as a Pending reference, routing Last.fm URLs to
// ResolveLastfm immediately since they need their own scrape-then-search
// resolution rather than a Client.GetMetadata call.
func (o *Orchestrator) AddAll(ctx context.Context, urls []string) error {
	expanded, err := urlparse.Expand(urls)
	if err != nil {
		return fmt.Errorf("failed to expand url list: %w", err)
	}

	for _, u := range expanded {
		if err := o.Add(ctx, u); err != nil {
			logger.Errorf(ctx, "Failed to process %s: %v", u, err)
		}
	}

	return nil
}

// Add parses one url and enqueues it.
func (o *Orchestrator) Add(ctx context.Context, url string) error {
	ref, ok := urlparse.Parse(url)
	if !ok {
		return fmt.Errorf("unrecognized url: %s", url)
	}

	if ref.IsLastfmURL {
		return o.ResolveLastfm(ctx, ref.LastfmURL)
	}

	return o.AddByID(ctx, ref.Source, ref.MediaType, ref.ID)
}

// AddByID enqueues one (source, mediaType, id) triple without URL parsing.
func (o *Orchestrator) AddByID(ctx context.Context, source string, mediaType client.MediaType, id string) error {
	cl, ok := o.clients[source]
	if !ok {
		return fmt.Errorf("unknown source: %s", source)
	}

	quality := sourceQuality(o.cfg, source)

	p, err := pending.Factory(mediaType, id, cl, o.deps, quality)
	if err != nil {
		return err
	}

	o.pendingMu.Lock()
	o.pendingList = append(o.pendingList, p)
	o.pendingMu.Unlock()

	return nil
}

// AddAllByID enqueues every id in ids under the same (source, mediaType).
func (o *Orchestrator) AddAllByID(ctx context.Context, source string, mediaType client.MediaType, ids []string) {
	for _, id := range ids {
		if err := o.AddByID(ctx, source, mediaType, id); err != nil {
			logger.Errorf(ctx, "Failed to enqueue %s/%s/%s: %v", source, mediaType, id, err)
		}
	}
}

// Resolve logs in to every one of the four sources, then fans
// out Pending.Resolve over it concurrently, keeping only the successful
// Media results (spec.md §4.6 "resolve()").
func (o *Orchestrator) Resolve(ctx context.Context) error {
	o.pendingMu.Lock()
	items := o.pendingList
	o.pendingList = nil
	o.pendingMu.Unlock()

	if err := o.loginForPending(ctx, items); err != nil {
		return err
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, p := range items {
		wg.Add(1)

		go func(p pending.Pending) {
			defer wg.Done()

			m, err := p.Resolve(ctx)
			if err != nil {
				logger.Errorf(ctx, "Failed to resolve pending item: %v", err)
				return
			}

			if m == nil {
				return
			}

			mu.Lock()
			o.mediaList = append(o.mediaList, m)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	return nil
}

// loginForPending logs in to every client, whether or not the pending list
// references its source. A failed login is only logged: clients reject calls
// until logged in, so that source's items then fail when resolved.
func (o *Orchestrator) loginForPending(ctx context.Context, _ []pending.Pending) error {
	for source := range o.clients {
		if _, err := o.GetLoggedInClient(ctx, source); err != nil {
			logger.Warnf(ctx, "Login failed for %s, its items will be skipped: %v", source, err)
		}
	}

	return nil
}

// ResolveLastfm scrapes playlistURL, resolves each entry against the
// configured primary/fallback sources, and appends the resulting Playlist
// directly to the media list (spec.md §4.3 "PendingLastfmPlaylist").
func (o *Orchestrator) ResolveLastfm(ctx context.Context, playlistURL string) error {
	primary, err := o.GetLoggedInClient(ctx, o.cfg.Lastfm.Source)
	if err != nil {
		return fmt.Errorf("failed to log in to last.fm primary source: %w", err)
	}

	var fallback client.Client

	if o.cfg.Lastfm.FallbackSource != "" {
		fallback, err = o.GetLoggedInClient(ctx, o.cfg.Lastfm.FallbackSource)
		if err != nil {
			logger.Warnf(ctx, "Login failed for last.fm fallback source: %v", err)
			fallback = nil
		}
	}

	name, entries, err := o.scraper.Fetch(ctx, playlistURL)
	if err != nil {
		return fmt.Errorf("failed to scrape last.fm playlist: %w", err)
	}

	p := &pending.LastfmPlaylist{
		Name:           name,
		Entries:        entries,
		PrimaryClient:  primary,
		FallbackClient: fallback,
		Deps:           o.deps,
		Quality:        sourceQuality(o.cfg, o.cfg.Lastfm.Source),
	}

	m, err := p.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve last.fm playlist: %w", err)
	}

	o.mediaMu.Lock()
	o.mediaList = append(o.mediaList, m)
	o.mediaMu.Unlock()

	return nil
}

// Rip fans Media.Rip out over the resolved media list and logs a summary
// (spec.md §4.6 "rip()").
func (o *Orchestrator) Rip(ctx context.Context) {
	o.mediaMu.Lock()
	items := o.mediaList
	o.mediaList = nil
	o.mediaMu.Unlock()

	var wg sync.WaitGroup

	for _, m := range items {
		wg.Add(1)

		go func(m media.Media) {
			defer wg.Done()
			m.Rip(ctx)
		}(m)
	}

	wg.Wait()

	logger.Infof(ctx, "Finished ripping %d item(s)", len(items))
}

// Teardown closes every client session, reaps the artwork cache, and
// clears the progress manager (spec.md §4.6 "Teardown").
func (o *Orchestrator) Teardown(ctx context.Context) {
	for source, cl := range o.clients {
		if err := cl.Close(); err != nil {
			logger.Errorf(ctx, "Failed to close %s client: %v", source, err)
		}
	}

	if err := o.deps.Artwork.ReapAll(); err != nil {
		logger.Errorf(ctx, "Failed to reap artwork cache: %v", err)
	}

	o.deps.Progress.Clear()

	if err := o.ledger.Close(); err != nil {
		logger.Errorf(ctx, "Failed to close ledger: %v", err)
	}
}

// sourceQuality reads the configured quality level for source.
func sourceQuality(cfg *config.Config, source string) uint8 {
	switch source {
	case config.SourceQobuz:
		return cfg.Qobuz.Quality
	case config.SourceTidal:
		return cfg.Tidal.Quality
	case config.SourceDeezer:
		return cfg.Deezer.Quality
	default:
		return 0
	}
}
