// Package converter transcodes a downloaded track to the configured codec
// via an ffmpeg subprocess, the external collaborator referenced at its
// interface per spec §1 ("converter.get(codec)" is out of scope; the
// command-line invocation around it is the part worth learning from the
// examples' os/exec usage).
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oshokin/crateflow/internal/config"
)

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located on
// PATH at construction time.
var ErrFFmpegNotFound = errors.New("ffmpeg executable not found on PATH")

// codecExtensions maps a configured codec name to its output file extension.
var codecExtensions = map[string]string{
	"mp3":  ".mp3",
	"aac":  ".m4a",
	"alac": ".m4a",
	"flac": ".flac",
	"ogg":  ".ogg",
	"opus": ".opus",
}

// Converter transcodes one file at a time via `ffmpeg -i src ... dst`.
type Converter struct {
	ffmpegPath   string
	codec        string
	samplingRate int
	bitDepth     int
}

// New resolves ffmpeg on PATH and builds a Converter for cfg.Conversion.
func New(cfg config.ConversionConfig) (*Converter, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrFFmpegNotFound
	}

	return &Converter{
		ffmpegPath:   ffmpegPath,
		codec:        strings.ToLower(cfg.Codec),
		samplingRate: cfg.SamplingRate,
		bitDepth:     cfg.BitDepth,
	}, nil
}

// Convert transcodes srcPath in place, returning the new file's path
// (same directory and basename, new extension), and removes the source
// file once the transcode succeeds (spec §4.4 Track.postprocess).
func (c *Converter) Convert(ctx context.Context, srcPath string) (string, error) {
	ext, ok := codecExtensions[c.codec]
	if !ok {
		return "", fmt.Errorf("converter: unknown codec %q", c.codec)
	}

	dstPath := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ext

	// ffmpeg cannot write over its own input, so a same-extension transcode
	// goes to a sibling file that then replaces the source.
	outPath := dstPath
	if outPath == srcPath {
		outPath = strings.TrimSuffix(srcPath, ext) + ".converting" + ext
	}

	args := []string{"-y", "-i", srcPath, "-map_metadata", "0"}

	if codecName, ok := ffmpegCodecName(c.codec); ok {
		args = append(args, "-c:a", codecName)
	}

	if c.samplingRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.samplingRate))
	}

	if c.bitDepth > 0 {
		if sampleFormat, ok := sampleFormatForBitDepth(c.bitDepth); ok {
			args = append(args, "-sample_fmt", sampleFormat)
		}
	}

	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...) //nolint:gosec // ffmpegPath resolved via exec.LookPath, args built internally.

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, string(output))
	}

	if outPath != dstPath {
		if err = os.Rename(outPath, dstPath); err != nil {
			return "", fmt.Errorf("failed to replace source file after conversion: %w", err)
		}

		return dstPath, nil
	}

	if err = os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("failed to remove source file after conversion: %w", err)
	}

	return dstPath, nil
}

func ffmpegCodecName(codec string) (string, bool) {
	switch codec {
	case "mp3":
		return "libmp3lame", true
	case "aac":
		return "aac", true
	case "alac":
		return "alac", true
	case "flac":
		return "flac", true
	case "ogg":
		return "libvorbis", true
	case "opus":
		return "libopus", true
	default:
		return "", false
	}
}

func sampleFormatForBitDepth(bitDepth int) (string, bool) {
	switch bitDepth {
	case 16:
		return "s16", true
	case 24:
		return "s32", true // ffmpeg has no packed 24-bit PCM sample format; s32 is the closest lossless container.
	case 32:
		return "s32", true
	default:
		return "", false
	}
}
