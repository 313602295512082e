// Package metadata holds the source-agnostic value objects produced by
// every Client.GetMetadata call, plus the path-templating logic that turns
// a track's tags into an on-disk folder and filename.
package metadata

import (
	"fmt"
)

// Covers holds the two cover-art resolutions every backend exposes: a small
// one suitable for embedding in tags, and a larger one optionally saved
// alongside the track files.
type Covers struct {
	Small string
	Large string
}

// AlbumMetadata is the immutable, source-agnostic view of an album built by
// a Client from its backend's response shape.
type AlbumMetadata struct {
	ID          string
	Source      string
	Title       string
	Artist      string
	Label       string
	ReleaseYear string
	ReleaseDate string
	TrackIDs    []string
	TrackCount  int
	Covers      Covers
}

// TrackMetadata is the immutable, source-agnostic view of one track. Album
// is a borrowed, non-owning back-pointer populated when the track was
// fetched as part of an album (spec §4.1: a track request embeds its
// containing album so tracknumber/track_total are correct).
type TrackMetadata struct {
	ID          string
	Source      string
	Title       string
	Artist      string
	TrackNumber int
	DiscNumber  int
	Genre       string
	Duration    int
	Album       *AlbumMetadata
}

// ArtistMetadata is the source-agnostic view of an artist's catalog.
type ArtistMetadata struct {
	ID       string
	Source   string
	Name     string
	AlbumIDs []string
}

// LabelMetadata is the source-agnostic view of a label's catalog.
type LabelMetadata struct {
	ID       string
	Source   string
	Name     string
	AlbumIDs []string
}

// TrackRef identifies one track within a specific source; playlists may mix
// sources when a Last.fm fallback resolves an entry on a different backend
// than the playlist's owning source.
type TrackRef struct {
	Source string
	ID     string
}

// PlaylistMetadata is the source-agnostic view of a playlist.
type PlaylistMetadata struct {
	ID     string
	Source string
	Name   string
	Tracks []TrackRef
}

// Tags renders a track's metadata into the string-keyed map consumed by both
// the path templates and the tag writer. Keys match the teacher's template
// vocabulary (trackNumberPad, albumArtist, …) so templates stay portable
// across sources.
func (t *TrackMetadata) Tags() map[string]string {
	tags := map[string]string{
		"trackID":        t.ID,
		"trackTitle":     t.Title,
		"trackArtist":    t.Artist,
		"trackNumber":    itoa(t.TrackNumber),
		"trackNumberPad": pad2(t.TrackNumber),
		"discNumber":     itoa(t.DiscNumber),
		"trackGenre":     t.Genre,
	}

	if t.Album != nil {
		tags["albumID"] = t.Album.ID
		tags["albumArtist"] = t.Album.Artist
		tags["collectionTitle"] = t.Album.Title
		tags["recordLabel"] = t.Album.Label
		tags["releaseYear"] = t.Album.ReleaseYear
		tags["releaseDate"] = t.Album.ReleaseDate
		tags["trackCount"] = itoa(t.Album.TrackCount)
	}

	return tags
}

// Tags renders an album's metadata into the same string-keyed vocabulary as
// TrackMetadata.Tags, for use by folder-name templates when no track context
// is available yet (e.g. resolving an album's folder before its tracks).
func (a *AlbumMetadata) Tags() map[string]string {
	return map[string]string{
		"albumID":         a.ID,
		"albumArtist":     a.Artist,
		"albumTitle":      a.Title,
		"collectionTitle": a.Title,
		"recordLabel":     a.Label,
		"releaseYear":     a.ReleaseYear,
		"releaseDate":     a.ReleaseDate,
		"trackCount":      itoa(a.TrackCount),
	}
}

func itoa(v int) string {
	if v == 0 {
		return ""
	}

	return fmt.Sprintf("%d", v)
}

func pad2(v int) string {
	if v == 0 {
		return ""
	}

	return fmt.Sprintf("%02d", v)
}
