// Package artwork caches per-album cover art on disk so sibling tracks in
// the same album download and embed the same bytes exactly once, and reaps
// the cache directories it created at the end of a run (spec §6
// "Artwork cache").
package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oshokin/crateflow/internal/constants"
)

// Set holds the two sizes of cover art for one album: the embed-sized image
// baked into every track's tag, and an optional full-resolution sidecar.
type Set struct {
	EmbedPath string
	HiResPath string
}

// Cache fetches and memoizes cover art by album ID, so N tracks belonging
// to the same album trigger exactly one download of each requested size.
type Cache struct {
	httpClient *http.Client
	rootDir    string

	mu      sync.Mutex
	entries *lru.Cache[string, *Set]
	dirs    map[string]string // albumID -> its backing directory, for eviction
}

// New builds a Cache bounded to maxAlbums live entries; evicted entries have
// their backing directory removed immediately, keeping disk usage bounded
// during a long multi-album run.
func New(httpClient *http.Client, maxAlbums int) (*Cache, error) {
	rootDir, err := os.MkdirTemp("", "crateflow-artwork-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create artwork cache directory: %w", err)
	}

	c := &Cache{httpClient: httpClient, rootDir: rootDir, dirs: make(map[string]string)}

	entries, err := lru.NewWithEvict(maxAlbums, func(albumID string, set *Set) {
		c.removeSet(albumID, set)
	})
	if err != nil {
		os.RemoveAll(rootDir) //nolint:errcheck // Best-effort cleanup on init failure.
		return nil, fmt.Errorf("failed to create artwork cache: %w", err)
	}

	c.entries = entries

	return c, nil
}

// Get returns the cached Set for albumID, downloading it first if absent.
// embedURL/hiResURL may individually be empty, in which case that side of
// the Set is left with an empty path.
func (c *Cache) Get(ctx context.Context, albumID, embedURL, hiResURL string, saveHiRes bool) (*Set, error) {
	c.mu.Lock()
	if set, ok := c.entries.Get(albumID); ok {
		c.mu.Unlock()
		return set, nil
	}
	c.mu.Unlock()

	albumDir := filepath.Join(c.rootDir, sanitizeID(albumID))
	if err := os.MkdirAll(albumDir, constants.DefaultFolderPermissions); err != nil {
		return nil, fmt.Errorf("failed to create album artwork directory: %w", err)
	}

	set := &Set{}

	if embedURL != "" {
		embedPath := filepath.Join(albumDir, "embed.jpg")
		if err := c.download(ctx, embedURL, embedPath); err != nil {
			return nil, fmt.Errorf("failed to download embed artwork: %w", err)
		}

		set.EmbedPath = embedPath
	}

	if saveHiRes && hiResURL != "" {
		hiResPath := filepath.Join(albumDir, "cover.jpg")
		if err := c.download(ctx, hiResURL, hiResPath); err != nil {
			return nil, fmt.Errorf("failed to download hi-res artwork: %w", err)
		}

		set.HiResPath = hiResPath
	}

	c.mu.Lock()
	c.entries.Add(albumID, set)
	c.dirs[albumID] = albumDir
	c.mu.Unlock()

	return set, nil
}

func (c *Cache) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching artwork", resp.StatusCode)
	}

	file, err := os.Create(filepath.Clean(destPath)) //nolint:gosec // Path is built from a sanitized album id under a temp root.
	if err != nil {
		return err
	}

	defer file.Close() //nolint:errcheck,gosec // Error on close after a successful write is not actionable.

	_, err = io.Copy(file, resp.Body)

	return err
}

// removeSet is the LRU eviction callback: it runs synchronously from within
// Get's locked section (via entries.Add), so it must not re-acquire c.mu.
// Removing the evicted album's directory immediately is what keeps temp-dir
// accumulation bounded during a long artist/label run instead of growing
// until ReapAll runs at teardown.
func (c *Cache) removeSet(albumID string, _ *Set) {
	dir, ok := c.dirs[albumID]
	if !ok {
		return
	}

	delete(c.dirs, albumID)
	os.RemoveAll(dir) //nolint:errcheck // Best-effort cleanup; ReapAll covers anything left behind.
}

// ReapAll removes every directory this cache created. Call once at
// orchestrator teardown.
func (c *Cache) ReapAll() error {
	return os.RemoveAll(c.rootDir)
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}

	return string(out)
}
