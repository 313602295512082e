package deezer

import (
	"strconv"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/metadata"
)

type deezerArtistRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deezerAlbum struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Artist      deezerArtistRef `json:"artist"`
	Label       string          `json:"label"`
	ReleaseDate string          `json:"release_date"`
	NBTracks    int             `json:"nb_tracks"`
	CoverSmall  string          `json:"cover_small"`
	CoverXL     string          `json:"cover_xl"`
	Tracks      struct {
		Data []deezerTrack `json:"data"`
	} `json:"tracks"`
}

func (a *deezerAlbum) toMetadata() *metadata.AlbumMetadata {
	year := ""
	if len(a.ReleaseDate) >= 4 {
		year = a.ReleaseDate[:4]
	}

	trackIDs := make([]string, 0, len(a.Tracks.Data))
	for _, t := range a.Tracks.Data {
		trackIDs = append(trackIDs, strconv.FormatInt(t.ID, 10))
	}

	return &metadata.AlbumMetadata{
		ID:          strconv.FormatInt(a.ID, 10),
		Source:      sourceName,
		Title:       a.Title,
		Artist:      a.Artist.Name,
		Label:       a.Label,
		ReleaseYear: year,
		ReleaseDate: a.ReleaseDate,
		TrackIDs:    trackIDs,
		TrackCount:  a.NBTracks,
		Covers: metadata.Covers{
			Small: a.CoverSmall,
			Large: a.CoverXL,
		},
	}
}

type deezerTrack struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	TrackPos   int             `json:"track_position"`
	DiskNumber int             `json:"disk_number"`
	Duration   int             `json:"duration"`
	Artist     deezerArtistRef `json:"artist"`
	Album      deezerAlbum     `json:"album"`
}

func (t *deezerTrack) toMetadata(album *metadata.AlbumMetadata) *metadata.TrackMetadata {
	artist := t.Artist.Name
	if artist == "" && album != nil {
		artist = album.Artist
	}

	return &metadata.TrackMetadata{
		ID:          strconv.FormatInt(t.ID, 10),
		Source:      sourceName,
		Title:       t.Title,
		Artist:      artist,
		TrackNumber: t.TrackPos,
		DiscNumber:  t.DiskNumber,
		Duration:    t.Duration,
		Album:       album,
	}
}

type deezerArtist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Albums []deezerAlbum
}

func (a *deezerArtist) toMetadata() *metadata.ArtistMetadata {
	albumIDs := make([]string, 0, len(a.Albums))
	for _, alb := range a.Albums {
		albumIDs = append(albumIDs, strconv.FormatInt(alb.ID, 10))
	}

	return &metadata.ArtistMetadata{
		ID:       strconv.FormatInt(a.ID, 10),
		Source:   sourceName,
		Name:     a.Name,
		AlbumIDs: albumIDs,
	}
}

type deezerPlaylist struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Tracks struct {
		Data []deezerTrack `json:"data"`
	} `json:"tracks"`
}

func (p *deezerPlaylist) toMetadata() *metadata.PlaylistMetadata {
	tracks := make([]metadata.TrackRef, 0, len(p.Tracks.Data))
	for _, t := range p.Tracks.Data {
		tracks = append(tracks, metadata.TrackRef{Source: sourceName, ID: strconv.FormatInt(t.ID, 10)})
	}

	return &metadata.PlaylistMetadata{
		ID:     strconv.FormatInt(p.ID, 10),
		Source: sourceName,
		Name:   p.Title,
		Tracks: tracks,
	}
}

// deezerSearchResponse's element shape depends on which /search/{kind}
// endpoint was called, so entries are decoded as raw maps and picked apart
// field-by-field in toSearchResults instead of through a fixed struct.
type deezerSearchResponse struct {
	Data []map[string]any `json:"data"`
}

func (r *deezerSearchResponse) toSearchResults(source string, mediaType client.MediaType) *metadata.SearchResults {
	results := &metadata.SearchResults{Source: source, MediaType: string(mediaType)}

	for _, raw := range r.Data {
		item := metadata.SearchResultItem{}

		if id, ok := raw["id"].(float64); ok {
			item.ID = strconv.FormatInt(int64(id), 10)
		}

		if title, ok := raw["title"].(string); ok {
			item.Title = title
		} else if name, ok := raw["name"].(string); ok {
			item.Title = name
		}

		if artist, ok := raw["artist"].(map[string]any); ok {
			if name, ok := artist["name"].(string); ok {
				item.Artist = name
			}
		}

		results.Items = append(results.Items, item)
	}

	return results
}
