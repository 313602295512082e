package metadata

// SearchResultItem is one hit in a SearchResults page, shaped generically
// enough to cover tracks, albums, artists, and featured/editorial entries.
type SearchResultItem struct {
	ID     string
	Title  string
	Artist string
}

// SearchResults is the source-agnostic outcome of Client.Search or
// Client.GetFeatured, built by each client package from whatever paging
// shape its backend returns.
type SearchResults struct {
	Source    string
	MediaType string
	Items     []SearchResultItem
}

// AsList renders the results as the stable, source-tagged shape used by the
// search-to-file output mode (spec §4.7, §6).
func (r *SearchResults) AsList() []map[string]string {
	list := make([]map[string]string, 0, len(r.Items))

	for _, item := range r.Items {
		list = append(list, map[string]string{
			"source":     r.Source,
			"media_type": r.MediaType,
			"id":         item.ID,
			"title":      item.Title,
			"artist":     item.Artist,
		})
	}

	return list
}

// FirstID returns the id of the first hit and true, or "" and false when
// there are no results (spec §8 property 8: search-first-hit).
func (r *SearchResults) FirstID() (string, bool) {
	if len(r.Items) == 0 {
		return "", false
	}

	return r.Items[0].ID, true
}
