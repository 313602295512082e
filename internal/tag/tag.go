// Package tag writes a track's normalized metadata (internal/metadata
// TrackMetadata.Tags) and artwork into its audio file: Vorbis comments and a
// FLAC picture block for FLAC, ID3v2 frames and an attached picture for
// MP3. Grounded on the teacher's tag-writing service, generalized from one
// source's fixed tag set to whatever internal/metadata renders.
package tag

import (
	"context"
	"errors"
	"mime"
	"os"
	"path/filepath"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/oshokin/crateflow/internal/logger"
)

// ErrEmptyTrackPath is returned when WriteRequest.TrackPath is empty.
var ErrEmptyTrackPath = errors.New("track path cannot be empty")

// Format identifies which tag format a track's container needs.
type Format int

const (
	FormatFLAC Format = iota
	FormatMP3
)

// WriteRequest carries everything Writer.Write needs to tag one file.
type WriteRequest struct {
	TrackPath    string
	CoverPath    string
	Format       Format
	Tags         map[string]string
	EmbedArtwork bool
}

// Writer writes normalized tags and, optionally, embedded cover art to an
// audio file already sitting at its final path.
type Writer struct{}

// NewWriter returns a Writer. It holds no state: every call to Write is
// independent and safe to run concurrently across different files.
func NewWriter() *Writer {
	return &Writer{}
}

// Write tags req.TrackPath in place.
func (w *Writer) Write(ctx context.Context, req *WriteRequest) error {
	if req.TrackPath == "" {
		return ErrEmptyTrackPath
	}

	var image *coverImage

	if req.CoverPath != "" && req.EmbedArtwork {
		data, err := os.ReadFile(filepath.Clean(req.CoverPath))
		if err != nil {
			return err
		}

		image = &coverImage{data: data, mimeType: mime.TypeByExtension(filepath.Ext(req.CoverPath))}
	}

	if req.Format == FormatFLAC {
		return w.writeFLAC(ctx, req, image)
	}

	return w.writeMP3(req, image)
}

type coverImage struct {
	data     []byte
	mimeType string
}

func (w *Writer) writeFLAC(ctx context.Context, req *WriteRequest, image *coverImage) error {
	f, err := flac.ParseFile(filepath.Clean(req.TrackPath))
	if err != nil {
		return err
	}

	comment, commentIndex, err := extractVorbisComment(req.TrackPath)
	if err != nil {
		return err
	}

	if comment == nil {
		comment = flacvorbis.New()
	}

	if err = addFLACTags(comment, req.Tags); err != nil {
		return err
	}

	block := comment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if image != nil {
		embedFLACCover(ctx, f, image)
	}

	return f.Save(req.TrackPath)
}

func extractVorbisComment(trackPath string) (*flacvorbis.MetaDataBlockVorbisComment, int, error) {
	f, err := flac.ParseFile(filepath.Clean(trackPath))
	if err != nil {
		return nil, -1, err
	}

	for idx, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}

		comment, parseErr := flacvorbis.ParseFromMetaDataBlock(*meta)
		if parseErr == nil {
			return comment, idx, nil
		}
	}

	return nil, -1, nil
}

func addFLACTags(comment *flacvorbis.MetaDataBlockVorbisComment, tags map[string]string) error {
	flacTags := map[string]string{
		"ALBUM":       tags["collectionTitle"],
		"ALBUMARTIST": tags["albumArtist"],
		"ARTIST":      tags["trackArtist"],
		"COPYRIGHT":   tags["recordLabel"],
		"DATE":        tags["releaseDate"],
		"GENRE":       tags["trackGenre"],
		"RELEASE_ID":  tags["albumID"],
		"TITLE":       tags["trackTitle"],
		"TOTALTRACKS": tags["trackCount"],
		"TRACK_ID":    tags["trackID"],
		"TRACKNUMBER": tags["trackNumber"],
		"DISCNUMBER":  tags["discNumber"],
		"YEAR":        tags["releaseYear"],
	}

	for k, v := range flacTags {
		if v == "" {
			continue
		}

		if err := comment.Add(k, v); err != nil {
			return err
		}
	}

	return nil
}

func embedFLACCover(ctx context.Context, f *flac.File, image *coverImage) {
	picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "", image.data, image.mimeType)
	if err != nil {
		logger.Errorf(ctx, "Failed to embed image to FLAC: %v", err)
		return
	}

	block := picture.Marshal()
	f.Meta = append(f.Meta, &block)
}

func (w *Writer) writeMP3(req *WriteRequest, image *coverImage) error {
	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false.
	mp3Tag, err := id3v2.Open(req.TrackPath, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}

	defer mp3Tag.Close()

	addMP3Tags(mp3Tag, req.Tags)

	if image != nil {
		//nolint:exhaustruct // Description intentionally empty for cover images.
		mp3Tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    image.mimeType,
			PictureType: id3v2.PTFrontCover,
			Picture:     image.data,
		})
	}

	return mp3Tag.Save()
}

func addMP3Tags(mp3Tag *id3v2.Tag, tags map[string]string) {
	mp3Tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	mp3Tag.SetAlbum(tags["collectionTitle"])
	mp3Tag.SetArtist(tags["trackArtist"])
	mp3Tag.SetGenre(tags["trackGenre"])
	mp3Tag.SetTitle(tags["trackTitle"])
	mp3Tag.SetYear(tags["releaseYear"])

	trackNumber, trackCount := tags["trackNumber"], tags["trackCount"]
	if trackNumber != "" {
		value := trackNumber
		if trackCount != "" {
			value += "/" + trackCount
		}

		mp3Tag.AddTextFrame(mp3Tag.CommonID("Track number/Position in set"), mp3Tag.DefaultEncoding(), value)
	}

	if discNumber := tags["discNumber"]; discNumber != "" {
		mp3Tag.AddTextFrame(mp3Tag.CommonID("Part of a set"), mp3Tag.DefaultEncoding(), discNumber)
	}

	mp3Tag.AddTextFrame(mp3Tag.CommonID("Band/Orchestra/Accompaniment"), mp3Tag.DefaultEncoding(), tags["albumArtist"])
	mp3Tag.AddTextFrame(mp3Tag.CommonID("Publisher"), mp3Tag.DefaultEncoding(), tags["recordLabel"])
}

// FormatFromExtension maps a file extension (".flac", ".mp3") to a Format.
func FormatFromExtension(ext string) (Format, bool) {
	switch ext {
	case ".flac":
		return FormatFLAC, true
	case ".mp3":
		return FormatMP3, true
	default:
		return 0, false
	}
}
