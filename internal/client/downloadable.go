package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/crateflow/internal/constants"
)

// Downloadable is the minimal handle over one remote audio stream (spec
// §4.2). Size is idempotent; Download writes the complete artifact to
// destPath and invokes progress with monotonically non-decreasing byte
// counts ending at Size() on success.
type Downloadable interface {
	Size(ctx context.Context) (int64, error)
	Download(ctx context.Context, destPath string, progress func(transferred int64)) error
	Extension() string
	Source() string
}

// ErrNotImplemented marks a Downloadable whose wire-level reassembly is out
// of scope for this module (spec §1: "the wire-level specifics of each
// streaming API" are an external collaborator referenced only at its
// interface).
var ErrNotImplemented = errors.New("downloadable not implemented for this source/codec combination")

// HTTPDownloadable is a plain GET-and-stream Downloadable, used for any
// backend that serves a direct file URL (Qobuz, SoundCloud progressive
// streams).
type HTTPDownloadable struct {
	HTTPClient    *http.Client
	URL           string
	FileExtension string
	SourceName    string
	SpeedLimitBPS int64 // bytes/sec, 0 = unlimited
	cachedSize    int64
	sizeKnown     bool
}

// NewHTTPDownloadable builds an HTTPDownloadable for a single direct URL.
func NewHTTPDownloadable(httpClient *http.Client, url, extension, source string, speedLimitBPS int64) *HTTPDownloadable {
	return &HTTPDownloadable{
		HTTPClient:    httpClient,
		URL:           url,
		FileExtension: extension,
		SourceName:    source,
		SpeedLimitBPS: speedLimitBPS,
	}
}

// Size performs a HEAD request to read Content-Length without consuming the
// stream; the result is cached so repeated calls stay idempotent.
func (d *HTTPDownloadable) Size(ctx context.Context) (int64, error) {
	if d.sizeKnown {
		return d.cachedSize, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.URL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to build HEAD request: %w", err)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD request failed: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck // Body is empty on a HEAD response.

	d.cachedSize = resp.ContentLength
	d.sizeKnown = true

	return d.cachedSize, nil
}

// Download writes the complete artifact to destPath via a `.part` sibling
// file that is renamed into place only after the transfer succeeds, so a
// killed run never leaves a half-written file at the final path (spec §5
// Cancellation). The optional speed limit throttles the body copy with
// io.CopyN + time.Sleep, the teacher's idiom.
func (d *HTTPDownloadable) Download(ctx context.Context, destPath string, progress func(int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build GET request: %w", err)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET request failed: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck // Error on close of a fully-read response body is not actionable.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, d.SourceName)
	}

	partPath := destPath + ".part"

	if err = os.MkdirAll(filepath.Dir(destPath), constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	partFile, err := os.Create(filepath.Clean(partPath)) //nolint:gosec // Path is derived from internally-computed template output.
	if err != nil {
		return fmt.Errorf("failed to create part file: %w", err)
	}

	if err = copyWithProgress(ctx, partFile, resp.Body, d.SpeedLimitBPS, progress); err != nil {
		partFile.Close()    //nolint:errcheck,gosec // Best-effort close before surfacing the copy error.
		os.Remove(partPath) //nolint:errcheck // Best-effort cleanup of a partial .part file.

		return fmt.Errorf("failed to write download body: %w", err)
	}

	if err = partFile.Close(); err != nil {
		return fmt.Errorf("failed to close part file: %w", err)
	}

	if err = os.Rename(partPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize downloaded file: %w", err)
	}

	return nil
}

func (d *HTTPDownloadable) Extension() string { return d.FileExtension }
func (d *HTTPDownloadable) Source() string    { return d.SourceName }

// copyWithProgress streams src into dst, optionally throttled to
// speedLimitBPS bytes/sec, reporting cumulative bytes via progress.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, speedLimitBPS int64, progress func(int64)) error {
	const chunkSize = 32 * 1024

	var transferred int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.CopyN(dst, src, chunkSize)
		transferred += n

		if progress != nil && n > 0 {
			progress(transferred)
		}

		if speedLimitBPS > 0 && n > 0 {
			time.Sleep(time.Duration(float64(n) / float64(speedLimitBPS) * float64(time.Second)))
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// Segment is one ordered chunk of a segmented stream (HLS-style playlists,
// Tidal MPD manifests).
type Segment struct {
	URL  string
	Size int64
}

// SegmentedDownloadable reassembles an ordered list of segments into one
// file inside Download, invisible to callers (spec §4.2).
type SegmentedDownloadable struct {
	HTTPClient    *http.Client
	Segments      []Segment
	FileExtension string
	SourceName    string
	SpeedLimitBPS int64
}

func (d *SegmentedDownloadable) Size(ctx context.Context) (int64, error) {
	var total int64

	for _, seg := range d.Segments {
		if seg.Size > 0 {
			total += seg.Size
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, seg.URL, http.NoBody)
		if err != nil {
			return 0, err
		}

		resp, err := d.HTTPClient.Do(req)
		if err != nil {
			return 0, err
		}

		total += resp.ContentLength
		resp.Body.Close() //nolint:errcheck,gosec // Body is empty on a HEAD response.
	}

	return total, nil
}

// Download fetches every segment in order and appends it to destPath.part,
// then renames atomically into place, matching HTTPDownloadable's crash
// safety.
func (d *SegmentedDownloadable) Download(ctx context.Context, destPath string, progress func(int64)) error {
	if err := os.MkdirAll(filepath.Dir(destPath), constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	partPath := destPath + ".part"

	partFile, err := os.Create(filepath.Clean(partPath)) //nolint:gosec // Path is derived from internally-computed template output.
	if err != nil {
		return fmt.Errorf("failed to create part file: %w", err)
	}

	var transferred int64

	for i, seg := range d.Segments {
		if err = ctx.Err(); err != nil {
			partFile.Close()    //nolint:errcheck,gosec // Best-effort close before surfacing the context error.
			os.Remove(partPath) //nolint:errcheck // Best-effort cleanup of a partial .part file.

			return err
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, seg.URL, http.NoBody)
		if reqErr != nil {
			partFile.Close()    //nolint:errcheck,gosec // Best-effort close before surfacing the build error.
			os.Remove(partPath) //nolint:errcheck // Best-effort cleanup of a partial .part file.

			return fmt.Errorf("failed to build request for segment %d: %w", i, reqErr)
		}

		resp, respErr := d.HTTPClient.Do(req)
		if respErr != nil {
			partFile.Close()    //nolint:errcheck,gosec // Best-effort close before surfacing the transport error.
			os.Remove(partPath) //nolint:errcheck // Best-effort cleanup of a partial .part file.

			return fmt.Errorf("failed to fetch segment %d: %w", i, respErr)
		}

		var segmentBytes int64

		copyErr := copyWithProgress(ctx, partFile, resp.Body, d.SpeedLimitBPS, func(n int64) {
			segmentBytes = n

			if progress != nil {
				progress(transferred + n)
			}
		})
		resp.Body.Close() //nolint:errcheck,gosec // Error on close of a fully-read response body is not actionable.

		if copyErr != nil {
			partFile.Close()    //nolint:errcheck,gosec // Best-effort close before surfacing the copy error.
			os.Remove(partPath) //nolint:errcheck // Best-effort cleanup of a partial .part file.

			return fmt.Errorf("failed to write segment %d: %w", i, copyErr)
		}

		transferred += segmentBytes
	}

	if err = partFile.Close(); err != nil {
		return fmt.Errorf("failed to close part file: %w", err)
	}

	return os.Rename(partPath, destPath)
}

func (d *SegmentedDownloadable) Extension() string { return d.FileExtension }
func (d *SegmentedDownloadable) Source() string    { return d.SourceName }

// BlowfishDownloadable names Deezer's per-chunk Blowfish descrambling seam.
// The wire-level decryption is out of scope (spec §1); Download reports
// ErrNotImplemented wrapped with the source name rather than silently
// downloading ciphertext.
type BlowfishDownloadable struct {
	FileExtension string
	DecryptionKey string
}

func (d *BlowfishDownloadable) Size(context.Context) (int64, error) { return 0, ErrNotImplemented }
func (d *BlowfishDownloadable) Download(context.Context, string, func(int64)) error {
	return fmt.Errorf("deezer blowfish stream: %w", ErrNotImplemented)
}
func (d *BlowfishDownloadable) Extension() string { return d.FileExtension }
func (d *BlowfishDownloadable) Source() string    { return "deezer" }

// MPDDownloadable names Tidal's MPD/ISM manifest-reassembly seam, left as an
// interface stub for the same reason as BlowfishDownloadable.
type MPDDownloadable struct {
	FileExtension string
	ManifestURL   string
}

func (d *MPDDownloadable) Size(context.Context) (int64, error) { return 0, ErrNotImplemented }
func (d *MPDDownloadable) Download(context.Context, string, func(int64)) error {
	return fmt.Errorf("tidal MPD manifest: %w", ErrNotImplemented)
}
func (d *MPDDownloadable) Extension() string { return d.FileExtension }
func (d *MPDDownloadable) Source() string    { return "tidal" }
