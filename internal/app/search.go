package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/oshokin/crateflow/internal/client"
	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/metadata"
	"github.com/oshokin/crateflow/internal/orchestrator"
)

// ExecuteSearchCommand runs the search facade against one source, in one of
// three modes (spec.md §4.7): output-file when outputFile is set, take-first
// when firstHit is set, interactive otherwise.
func ExecuteSearchCommand(
	ctx context.Context,
	cfg *config.Config,
	source, mediaTypeName, query, outputFile string,
	firstHit bool,
) {
	mediaType, ok := parseMediaType(mediaTypeName)
	if !ok {
		logger.Fatalf(ctx, "Unknown media type: %s", mediaTypeName)
	}

	o, err := orchestrator.New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize orchestrator: %v", err)
	}

	defer o.Teardown(ctx)

	cl, err := o.GetLoggedInClient(ctx, source)
	if err != nil {
		logger.Fatalf(ctx, "Failed to log in to %s: %v", source, err)
	}

	const interactiveSearchLimit = 25

	limit := interactiveSearchLimit
	if firstHit {
		limit = 1
	}

	var results *metadata.SearchResults

	if mediaType == client.MediaTypeFeatured {
		results, err = fetchFeatured(ctx, cl, source, query)
	} else {
		results, err = cl.Search(ctx, mediaType, query, limit)
	}

	if err != nil {
		logger.Fatalf(ctx, "Search failed: %v", err)
	}

	// A featured listing enqueues whatever concrete media type it actually
	// returned (results.MediaType, e.g. "album"); "featured" itself is a
	// search-time selector, not something pending.Factory knows how to build.
	downloadMediaType := mediaType
	if mediaType == client.MediaTypeFeatured {
		downloadMediaType = client.MediaType(results.MediaType)
	}

	switch {
	case outputFile != "":
		writeSearchResultsToFile(ctx, results, outputFile)
	case firstHit:
		takeFirstHit(ctx, o, source, downloadMediaType, results)
	default:
		runInteractiveSearch(ctx, o, source, downloadMediaType, results)
	}
}

func parseMediaType(name string) (client.MediaType, bool) {
	switch client.MediaType(name) {
	case client.MediaTypeTrack, client.MediaTypeAlbum, client.MediaTypeArtist,
		client.MediaTypeLabel, client.MediaTypePlaylist, client.MediaTypeFeatured:
		return client.MediaType(name), true
	default:
		return "", false
	}
}

// fetchFeatured routes a MediaTypeFeatured search to GetFeatured instead of
// Search, pulling the sub-selector ("new-releases", "charts-top", …) out of
// query as a selector= parameter.
func fetchFeatured(ctx context.Context, cl client.Client, source, query string) (*metadata.SearchResults, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid featured query %q: %w", source, query, err)
	}

	return cl.GetFeatured(ctx, values.Get("selector"))
}

func writeSearchResultsToFile(ctx context.Context, results *metadata.SearchResults, path string) {
	data, err := json.MarshalIndent(results.AsList(), "", "  ")
	if err != nil {
		logger.Fatalf(ctx, "Failed to encode search results: %v", err)
	}

	const outputFilePermissions = 0o644

	if err = os.WriteFile(path, data, outputFilePermissions); err != nil {
		logger.Fatalf(ctx, "Failed to write search results to %s: %v", path, err)
	}

	logger.Infof(ctx, "Wrote %d result(s) to %s", len(results.Items), path)
}

func takeFirstHit(
	ctx context.Context,
	o *orchestrator.Orchestrator,
	source string,
	mediaType client.MediaType,
	results *metadata.SearchResults,
) {
	id, ok := results.FirstID()
	if !ok {
		logger.Infof(ctx, "No results found for query")
		return
	}

	o.AddAllByID(ctx, source, mediaType, []string{id})
}

// runInteractiveSearch renders a numbered menu on stdout and reads a
// comma-separated selection from stdin. No TUI library is wired for this:
// none of the retrieval pack's example repos import one, so a plain
// bufio.Reader prompt is the stack-consistent choice here.
func runInteractiveSearch(
	ctx context.Context,
	o *orchestrator.Orchestrator,
	source string,
	mediaType client.MediaType,
	results *metadata.SearchResults,
) {
	if len(results.Items) == 0 {
		logger.Infof(ctx, "No results found for query")
		return
	}

	for i, item := range results.Items {
		fmt.Printf("%3d. %s — %s\n", i+1, item.Artist, item.Title)
	}

	fmt.Print("Select items to download (comma-separated numbers): ")

	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil {
		logger.Errorf(ctx, "Failed to read selection: %v", err)
		return
	}

	var ids []string

	for _, field := range strings.Split(line, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		index, convErr := strconv.Atoi(field)
		if convErr != nil || index < 1 || index > len(results.Items) {
			logger.Warnf(ctx, "Ignoring invalid selection: %s", field)
			continue
		}

		ids = append(ids, results.Items[index-1].ID)
	}

	o.AddAllByID(ctx, source, mediaType, ids)
}
