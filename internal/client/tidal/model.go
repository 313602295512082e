package tidal

import (
	"strconv"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/metadata"
)

type tidalArtistRef struct {
	Name string `json:"name"`
}

type tidalAlbum struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	ReleaseDate    string         `json:"releaseDate"`
	NumberOfTracks int            `json:"numberOfTracks"`
	Cover          string         `json:"cover"`
	Artist         tidalArtistRef `json:"artist"`
	Tracks         struct {
		Items []tidalTrack `json:"items"`
	} `json:"tracks"`
}

// coverURL expands Tidal's dash-separated cover UUID into the image CDN
// path; "320x320" and "1280x1280" are the embed and hi-res sizes.
func coverURL(coverUUID, size string) string {
	if coverUUID == "" {
		return ""
	}

	return "https://resources.tidal.com/images/" + coverUUID + "/" + size + ".jpg"
}

func (a *tidalAlbum) toMetadata() *metadata.AlbumMetadata {
	year := ""
	if len(a.ReleaseDate) >= 4 {
		year = a.ReleaseDate[:4]
	}

	trackIDs := make([]string, 0, len(a.Tracks.Items))
	for _, t := range a.Tracks.Items {
		trackIDs = append(trackIDs, strconv.FormatInt(t.ID, 10))
	}

	return &metadata.AlbumMetadata{
		ID:          strconv.FormatInt(a.ID, 10),
		Source:      sourceName,
		Title:       a.Title,
		Artist:      a.Artist.Name,
		ReleaseYear: year,
		ReleaseDate: a.ReleaseDate,
		TrackIDs:    trackIDs,
		TrackCount:  a.NumberOfTracks,
		Covers: metadata.Covers{
			Small: coverURL(a.Cover, "320x320"),
			Large: coverURL(a.Cover, "1280x1280"),
		},
	}
}

type tidalTrack struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	TrackNumber  int            `json:"trackNumber"`
	VolumeNumber int            `json:"volumeNumber"`
	Duration     int            `json:"duration"`
	Artist       tidalArtistRef `json:"artist"`
	Album        tidalAlbum     `json:"album"`
}

func (t *tidalTrack) toMetadata(album *metadata.AlbumMetadata) *metadata.TrackMetadata {
	artist := t.Artist.Name
	if artist == "" && album != nil {
		artist = album.Artist
	}

	return &metadata.TrackMetadata{
		ID:          strconv.FormatInt(t.ID, 10),
		Source:      sourceName,
		Title:       t.Title,
		Artist:      artist,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.VolumeNumber,
		Duration:    t.Duration,
		Album:       album,
	}
}

type tidalArtist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Albums struct {
		Items []tidalAlbum `json:"items"`
	} `json:"albums"`
}

func (a *tidalArtist) toMetadata() *metadata.ArtistMetadata {
	albumIDs := make([]string, 0, len(a.Albums.Items))
	for _, alb := range a.Albums.Items {
		albumIDs = append(albumIDs, strconv.FormatInt(alb.ID, 10))
	}

	return &metadata.ArtistMetadata{
		ID:       strconv.FormatInt(a.ID, 10),
		Source:   sourceName,
		Name:     a.Name,
		AlbumIDs: albumIDs,
	}
}

type tidalPlaylist struct {
	UUID   string `json:"uuid"`
	Title  string `json:"title"`
	Tracks struct {
		Items []tidalTrack `json:"items"`
	} `json:"tracks"`
}

func (p *tidalPlaylist) toMetadata() *metadata.PlaylistMetadata {
	tracks := make([]metadata.TrackRef, 0, len(p.Tracks.Items))
	for _, t := range p.Tracks.Items {
		tracks = append(tracks, metadata.TrackRef{Source: sourceName, ID: strconv.FormatInt(t.ID, 10)})
	}

	return &metadata.PlaylistMetadata{
		ID:     p.UUID,
		Source: sourceName,
		Name:   p.Title,
		Tracks: tracks,
	}
}

type tidalSearchResponse struct {
	Tracks struct {
		Items []tidalTrack `json:"items"`
	} `json:"tracks"`
	Albums struct {
		Items []tidalAlbum `json:"items"`
	} `json:"albums"`
	Artists struct {
		Items []tidalArtist `json:"items"`
	} `json:"artists"`
	Playlists struct {
		Items []tidalPlaylist `json:"items"`
	} `json:"playlists"`
}

func (r *tidalSearchResponse) toSearchResults(source string, mediaType client.MediaType) *metadata.SearchResults {
	results := &metadata.SearchResults{Source: source, MediaType: string(mediaType)}

	switch mediaType {
	case client.MediaTypeTrack:
		for _, t := range r.Tracks.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: strconv.FormatInt(t.ID, 10), Title: t.Title, Artist: t.Artist.Name,
			})
		}
	case client.MediaTypeAlbum:
		for _, a := range r.Albums.Items {
			results.Items = append(results.Items, metadata.SearchResultItem{
				ID: strconv.FormatInt(a.ID, 10), Title: a.Title, Artist: a.Artist.Name,
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
			results.Items = append(results.Items, metadata.SearchResultItem{ID: p.UUID, Title: p.Title})
		}
	}

	return results
}
