package soundcloud

import (
	"strconv"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/metadata"
)

type soundCloudUserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type soundCloudTranscoding struct {
	URL    string `json:"url"`
	Format struct {
		Protocol string `json:"protocol"`
	} `json:"format"`
}

type soundCloudTrack struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Genre      string            `json:"genre"`
	Duration   int               `json:"duration"`
	Streamable bool              `json:"streamable"`
	ArtworkURL string            `json:"artwork_url"`
	User       soundCloudUserRef `json:"user"`
	Media      struct {
		Transcodings []soundCloudTranscoding `json:"transcodings"`
	} `json:"media"`
}

// progressiveTranscodingURL picks the first "progressive" (plain HTTP,
// non-HLS) transcoding, the only kind HTTPDownloadable can stream directly.
func (t *soundCloudTrack) progressiveTranscodingURL() string {
	for _, tc := range t.Media.Transcodings {
		if tc.Format.Protocol == "progressive" {
			return tc.URL
		}
	}

	return ""
}

func (t *soundCloudTrack) toMetadata() *metadata.TrackMetadata {
	return &metadata.TrackMetadata{
		ID:       strconv.FormatInt(t.ID, 10),
		Source:   sourceName,
		Title:    t.Title,
		Artist:   t.User.Username,
		Genre:    t.Genre,
		Duration: t.Duration / 1000,
	}
}

type soundCloudPlaylist struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Tracks []soundCloudTrack `json:"tracks"`
}

func (p *soundCloudPlaylist) toMetadata() *metadata.PlaylistMetadata {
	tracks := make([]metadata.TrackRef, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		tracks = append(tracks, metadata.TrackRef{Source: sourceName, ID: strconv.FormatInt(t.ID, 10)})
	}

	return &metadata.PlaylistMetadata{
		ID:     strconv.FormatInt(p.ID, 10),
		Source: sourceName,
		Name:   p.Title,
		Tracks: tracks,
	}
}

type soundCloudUser struct {
	ID       int64             `json:"id"`
	Username string            `json:"username"`
	Tracks   []soundCloudTrack `json:"-"`
}

func (u *soundCloudUser) toMetadata() *metadata.ArtistMetadata {
	albumIDs := make([]string, 0, len(u.Tracks))
	for _, t := range u.Tracks {
		albumIDs = append(albumIDs, strconv.FormatInt(t.ID, 10))
	}

	return &metadata.ArtistMetadata{
		ID:       strconv.FormatInt(u.ID, 10),
		Source:   sourceName,
		Name:     u.Username,
		AlbumIDs: albumIDs,
	}
}

type soundCloudSearchResponse struct {
	Collection []map[string]any `json:"collection"`
}

func (r *soundCloudSearchResponse) toSearchResults(source string, mediaType client.MediaType) *metadata.SearchResults {
	results := &metadata.SearchResults{Source: source, MediaType: string(mediaType)}

	for _, raw := range r.Collection {
		item := metadata.SearchResultItem{}

		if id, ok := raw["id"].(float64); ok {
			item.ID = strconv.FormatInt(int64(id), 10)
		}

		if title, ok := raw["title"].(string); ok {
			item.Title = title
		} else if username, ok := raw["username"].(string); ok {
			item.Title = username
		}

		if user, ok := raw["user"].(map[string]any); ok {
			if username, ok := user["username"].(string); ok {
				item.Artist = username
			}
		}

		results.Items = append(results.Items, item)
	}

	return results
}
