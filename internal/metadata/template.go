package metadata

import (
	"bytes"
	"context"
	"html"
	"html/template"

	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/utils"
)

// PathFormatter renders album folder names and track filenames from a
// config-supplied html/template (its escaped output is unescaped again),
// falling back to the built-in default
// template whenever the custom one fails to parse or execute. Grounded on
// the teacher's TemplateManager, narrowed to the two templates this module
// needs (folder, track).
type PathFormatter struct {
	cfg            *config.Config
	folderTemplate *template.Template
	trackTemplate  *template.Template
	defaultFolder  *template.Template
	defaultTrack   *template.Template
}

// NewPathFormatter parses cfg's folder/track templates, logging and falling
// back to the compiled-in defaults on a parse error.
func NewPathFormatter(ctx context.Context, cfg *config.Config) *PathFormatter {
	defaultFolder := template.Must(template.New("defaultFolder").Parse(config.DefaultFolderFormat))
	defaultTrack := template.Must(template.New("defaultTrack").Parse(config.DefaultTrackFormat))

	folderTemplate, err := template.New("folder").Parse(cfg.Filepaths.FolderFormat)
	if err != nil {
		logger.Errorf(ctx, "Failed to parse folder_format template, using default: %v", err)
		folderTemplate = nil
	}

	trackTemplate, err := template.New("track").Parse(cfg.Filepaths.TrackFormat)
	if err != nil {
		logger.Errorf(ctx, "Failed to parse track_format template, using default: %v", err)
		trackTemplate = nil
	}

	return &PathFormatter{
		cfg:            cfg,
		folderTemplate: folderTemplate,
		trackTemplate:  trackTemplate,
		defaultFolder:  defaultFolder,
		defaultTrack:   defaultTrack,
	}
}

// FolderName renders the album folder name from its tags and sanitizes it.
func (f *PathFormatter) FolderName(ctx context.Context, tags map[string]string) string {
	return f.render(ctx, f.folderTemplate, f.defaultFolder, tags)
}

// TrackFilename renders a track's base filename (without extension) from its
// tags and sanitizes it.
func (f *PathFormatter) TrackFilename(ctx context.Context, tags map[string]string) string {
	return f.render(ctx, f.trackTemplate, f.defaultTrack, tags)
}

func (f *PathFormatter) render(
	ctx context.Context,
	primary, fallback *template.Template,
	tags map[string]string,
) string {
	var buffer bytes.Buffer

	if primary != nil {
		if err := primary.Execute(&buffer, tags); err != nil {
			logger.Errorf(ctx, "Failed to execute path template, using default: %v", err)
			buffer.Reset()
			_ = fallback.Execute(&buffer, tags) //nolint:errcheck // Default template is always valid.
		}
	} else {
		_ = fallback.Execute(&buffer, tags) //nolint:errcheck // Default template is always valid.
	}

	rendered := html.UnescapeString(buffer.String())
	if f.cfg.Filepaths.RestrictCharacters {
		rendered = utils.SanitizeFilename(rendered)
	}

	if truncateTo := f.cfg.Filepaths.TruncateTo; truncateTo > 0 && len(rendered) > truncateTo {
		rendered = rendered[:truncateTo]
	}

	return rendered
}
