package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/utils"
)

// Concatenator joins an ordered list of video files into one output via
// a single concat-demuxer invocation over the whole manifest. Joining
// pairwise would compound re-encode loss, so the manifest always covers
// every input at once.
//
// Re-encoding is the default: uploaded files routinely carry mismatched
// codecs, which stream-copy concatenation cannot join correctly. The
// stream-copy path stays available for inputs known to share the uniform
// segment profile.
type Concatenator struct {
	ffmpeg   *utils.FFmpeg
	profile  utils.EncodeProfile
	reencode bool
}

// NewConcatenator creates a concatenator with the given join policy.
func NewConcatenator(ffmpeg *utils.FFmpeg, profile utils.EncodeProfile, reencode bool) *Concatenator {
	return &Concatenator{
		ffmpeg:   ffmpeg,
		profile:  profile,
		reencode: reencode,
	}
}

// Concatenate joins paths in order into outPath. The manifest is written
// next to the output and removed on every exit path; a failed join never
// leaves a partial output behind.
func (c *Concatenator) Concatenate(ctx context.Context, paths []string, outPath string) error {
	const op = "concat.Concatenate"

	if len(paths) < 2 {
		return apperr.Validation(op, "at least 2 videos are required for concatenation")
	}

	manifestPath, err := c.writeManifest(paths, filepath.Dir(outPath))
	if err != nil {
		return apperr.Concatenation(op, err, "failed to write concat manifest")
	}
	defer func() {
		if rmErr := os.Remove(manifestPath); rmErr != nil {
			logrus.WithError(rmErr).WithField("path", manifestPath).Warn("Failed to remove concat manifest")
		}
	}()

	if err := c.ffmpeg.Concat(ctx, manifestPath, outPath, c.reencode, c.profile); err != nil {
		if rmErr := os.Remove(outPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logrus.WithError(rmErr).WithField("path", outPath).Warn("Failed to remove partial concat output")
		}
		return apperr.Concatenation(op, err, "video concatenation failed")
	}

	return nil
}

// writeManifest writes a concat-demuxer file list referencing the
// absolute path of every input, in order.
func (c *Concatenator) writeManifest(paths []string, dir string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}

	manifestPath := filepath.Join(dir, fmt.Sprintf("filelist_%s.txt", uuid.NewString()))
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", manifestPath, err)
	}
	return manifestPath, nil
}
