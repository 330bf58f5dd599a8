package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// EncodeProfile is the uniform re-encode target applied to every segment.
// Keeping it constant across a split guarantees the pieces can be joined
// with the concat demuxer afterwards.
type EncodeProfile struct {
	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

// FFmpeg wraps ffmpeg/ffprobe invocations behind an injected runner.
type FFmpeg struct {
	runner CommandRunner
}

// NewFFmpeg creates an FFmpeg wrapper using the given runner.
func NewFFmpeg(runner CommandRunner) *FFmpeg {
	return &FFmpeg{runner: runner}
}

// ProbeDuration returns the duration of a media file in seconds.
// Works for audio files too. Failure here is fatal to the caller.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := f.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}

	durationStr := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	return duration, nil
}

// ProbeDimensions returns the width and height of the first video stream.
// On any failure it logs and falls back to the provided defaults rather
// than failing the request.
func (f *FFmpeg) ProbeDimensions(ctx context.Context, path string, fallbackW, fallbackH int) (int, int) {
	out, err := f.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Dimension probe failed, using fallback")
		return fallbackW, fallbackH
	}

	parts := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(parts) != 2 {
		logrus.WithField("path", path).Warn("Unexpected dimension probe output, using fallback")
		return fallbackW, fallbackH
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		logrus.WithField("path", path).Warn("Unparsable dimension probe output, using fallback")
		return fallbackW, fallbackH
	}

	return w, h
}

// ExtractSegment re-encodes the [start, start+duration) interval of src
// into out using the uniform profile. Seeking before the input keeps the
// extraction fast on long sources.
func (f *FFmpeg) ExtractSegment(ctx context.Context, src, out string, start, duration float64, p EncodeProfile) error {
	args := []string{
		"-ss", formatSeconds(start),
		"-i", src,
		"-t", formatSeconds(duration),
		"-c:v", p.VideoCodec,
		"-crf", strconv.Itoa(p.CRF),
		"-preset", p.Preset,
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-avoid_negative_ts", "make_zero",
		"-y", out,
	}

	if _, err := f.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("segment encode failed: %w", err)
	}
	return nil
}

// Concat joins every entry of a concat-demuxer manifest into out in a
// single invocation. With reencode false the streams are copied, which
// requires matching codecs across all inputs.
func (f *FFmpeg) Concat(ctx context.Context, manifestPath, out string, reencode bool, p EncodeProfile) error {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
	}
	if reencode {
		args = append(args,
			"-c:v", p.VideoCodec,
			"-crf", strconv.Itoa(p.CRF),
			"-preset", p.Preset,
			"-c:a", p.AudioCodec,
			"-b:a", p.AudioBitrate,
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, "-y", out)

	if _, err := f.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

// formatSeconds renders a seconds value for an ffmpeg argument without
// exponent notation.
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
