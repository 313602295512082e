package qobuz

import (
	"strconv"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/metadata"
)

type qobuzImage struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

type qobuzArtistRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type qobuzLabelRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type qobuzAlbum struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Artist              qobuzArtistRef `json:"artist"`
	Label               qobuzLabelRef  `json:"label"`
	ReleaseDateOriginal string         `json:"release_date_original"`
	TracksCount         int            `json:"tracks_count"`
	Image               qobuzImage     `json:"image"`
	Tracks              struct {
		Items []qobuzTrack `json:"items"`
	} `json:"tracks"`
}

func (a *qobuzAlbum) toMetadata() *metadata.AlbumMetadata {
	year := ""
	if len(a.ReleaseDateOriginal) >= 4 {
		year = a.ReleaseDateOriginal[:4]
	}

	trackIDs := make([]string, 0, len(a.Tracks.Items))
	for _, t := range a.Tracks.Items {
		trackIDs = append(trackIDs, strconv.FormatInt(t.ID, 10))
	}

	return &metadata.AlbumMetadata{
		ID:          a.ID,
		Source:      sourceName,
		Title:       a.Title,
		Artist:      a.Artist.Name,
		Label:       a.Label.Name,
		ReleaseYear: year,
		ReleaseDate: a.ReleaseDateOriginal,
		TrackIDs:    trackIDs,
		TrackCount:  a.TracksCount,
		Covers: metadata.Covers{
			Small: a.Image.Small,
			Large: a.Image.Large,
		},
	}
}

type qobuzTrack struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Version     string         `json:"version"`
	TrackNumber int            `json:"track_number"`
	MediaNumber int            `json:"media_number"`
	Duration    int            `json:"duration"`
	Performer   qobuzArtistRef `json:"performer"`
	Album       qobuzAlbum     `json:"album"`
}

func (t *qobuzTrack) toMetadata(album *metadata.AlbumMetadata) *metadata.TrackMetadata {
	title := t.Title
	if t.Version != "" {
		title += " (" + t.Version + ")"
	}

	artist := t.Performer.Name
	if artist == "" && album != nil {
		artist = album.Artist
	}

	return &metadata.TrackMetadata{
		ID:          strconv.FormatInt(t.ID, 10),
		Source:      sourceName,
		Title:       title,
		Artist:      artist,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.MediaNumber,
		Duration:    t.Duration,
		Album:       album,
	}
}

type qobuzArtist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Albums struct {
		Items []qobuzAlbum `json:"items"`
	} `json:"albums"`
}

func (a *qobuzArtist) toMetadata() *metadata.ArtistMetadata {
	albumIDs := make([]string, 0, len(a.Albums.Items))
	for _, alb := range a.Albums.Items {
		albumIDs = append(albumIDs, alb.ID)
	}

	return &metadata.ArtistMetadata{
		ID:       strconv.FormatInt(a.ID, 10),
		Source:   sourceName,
		Name:     a.Name,
		AlbumIDs: albumIDs,
	}
}

type qobuzLabel struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Albums struct {
		Items []qobuzAlbum `json:"items"`
	} `json:"albums"`
}

func (l *qobuzLabel) toMetadata() *metadata.LabelMetadata {
	albumIDs := make([]string, 0, len(l.Albums.Items))
	for _, alb := range l.Albums.Items {
		albumIDs = append(albumIDs, alb.ID)
	}

	return &metadata.LabelMetadata{
		ID:       strconv.FormatInt(l.ID, 10),
		Source:   sourceName,
		Name:     l.Name,
		AlbumIDs: albumIDs,
	}
}

type qobuzPlaylist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Tracks struct {
		Items []qobuzTrack `json:"items"`
	} `json:"tracks"`
}

func (p *qobuzPlaylist) toMetadata() *metadata.PlaylistMetadata {
	tracks := make([]metadata.TrackRef, 0, len(p.Tracks.Items))
	for _, t := range p.Tracks.Items {
		tracks = append(tracks, metadata.TrackRef{Source: sourceName, ID: strconv.FormatInt(t.ID, 10)})
	}

	return &metadata.PlaylistMetadata{
		ID:     strconv.FormatInt(p.ID, 10),
		Source: sourceName,
		Name:   p.Name,
		Tracks: tracks,
	}
}

type qobuzSearchResponse struct {
	Tracks struct {
		Items []qobuzTrack `json:"items"`
	} `json:"tracks"`
	Albums struct {
		Items []qobuzAlbum `json:"items"`
	} `json:"albums"`
	Artists struct {
		Items []qobuzArtist `json:"items"`
	} `json:"artists"`
	Playlists struct {
		Items []qobuzPlaylist `json:"items"`
	} `json:"playlists"`
}

func (r *qobuzSearchResponse) toSearchResults(source string, mediaType client.MediaType) *metadata.SearchResults {
	results := &metadata.SearchResults{Source: source, MediaType: string(mediaType)}

	switch mediaType {
	case client.MediaTypeTrack:
		for _, t := range r.Tracks.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: strconv.FormatInt(t.ID, 10), Title: t.Title, Artist: t.Performer.Name,
			})
		}
	case client.MediaTypeAlbum:
		for _, a := range r.Albums.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: a.ID, Title: a.Title, Artist: a.Artist.Name,
			})
		}
	case client.MediaTypeArtist:
		for _, a := range r.Artists.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: strconv.FormatInt(a.ID, 10), Title: a.Name,
			})
		}
	case client.MediaTypePlaylist:
		for _, p := range r.Playlists.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: strconv.FormatInt(p.ID, 10), Title: p.Name,
			})
		}
	}

	return results
}
