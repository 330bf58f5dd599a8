package services

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/models"
	"github.com/damechen/video-editing/utils"
)

// Splitter cuts a source video into one re-encoded segment per prompt
// interval.
type Splitter struct {
	ffmpeg      *utils.FFmpeg
	profile     utils.EncodeProfile
	concurrency int
}

// NewSplitter creates a splitter. Concurrency bounds how many segment
// encodes of one split may run at once; 1 keeps extraction sequential.
func NewSplitter(ffmpeg *utils.FFmpeg, profile utils.EncodeProfile, concurrency int) *Splitter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Splitter{
		ffmpeg:      ffmpeg,
		profile:     profile,
		concurrency: concurrency,
	}
}

// Split probes the source duration, derives one time interval per prompt
// and writes a re-encoded segment file per interval into the workspace.
//
// Interval i runs from prompt i's start time (0 when unset) to prompt
// i+1's start time, or to the end of the source for the last prompt.
// Intervals with non-positive duration are skipped with a warning; the
// remaining prompts are unaffected. Any probe or encode failure aborts
// the whole split and removes every segment already written.
//
// Returned segments are in prompt order and carry the prompt's text and
// index, so callers can map a segment back to its prompt after skips.
func (s *Splitter) Split(ctx context.Context, sourcePath string, prompts []models.Prompt, ws *utils.Workspace) ([]models.Segment, error) {
	const op = "splitter.Split"

	if len(prompts) == 0 {
		return nil, apperr.Validation(op, "prompts cannot be empty")
	}

	totalDuration, err := s.ffmpeg.ProbeDuration(ctx, sourcePath)
	if err != nil {
		return nil, apperr.Probe(op, err, "failed to determine source duration")
	}

	logger := logrus.WithFields(logrus.Fields{
		"request_id": ws.RequestID,
		"source":     sourcePath,
		"duration":   totalDuration,
	})

	// First pass: timing arithmetic only, no file I/O yet.
	segments := make([]models.Segment, 0, len(prompts))
	for i, prompt := range prompts {
		start := 0.0
		if prompt.StartTime != nil {
			start = *prompt.StartTime
		}

		end := totalDuration
		if i+1 < len(prompts) && prompts[i+1].StartTime != nil {
			end = *prompts[i+1].StartTime
		}

		duration := end - start
		if duration <= 0 {
			logger.WithFields(logrus.Fields{
				"index":    i,
				"start":    start,
				"end":      end,
				"duration": duration,
			}).Warn("Skipping segment with non-positive duration")
			continue
		}

		segments = append(segments, models.Segment{
			SourcePath: sourcePath,
			Path:       ws.Path(fmt.Sprintf("segment_%d.mp4", i)),
			Index:      i,
			Label:      prompt.Text,
			StartTime:  start,
			EndTime:    end,
			Duration:   duration,
		})
	}

	// Second pass: encode each retained segment. Segments of one split
	// are independent (same source, disjoint ranges), so they may run
	// concurrently up to the configured bound.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, seg := range segments {
		g.Go(func() error {
			logger.WithFields(logrus.Fields{
				"index": seg.Index,
				"start": seg.StartTime,
				"end":   seg.EndTime,
			}).Info("Extracting segment")

			if err := s.ffmpeg.ExtractSegment(gctx, sourcePath, seg.Path, seg.StartTime, seg.Duration, s.profile); err != nil {
				return fmt.Errorf("segment %d (%q): %w", seg.Index, seg.Label, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// No partial leakage: drop whatever was already written before
		// surfacing the error.
		for _, seg := range segments {
			if rmErr := os.Remove(seg.Path); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.WithError(rmErr).WithField("path", seg.Path).Warn("Failed to remove partial segment")
			}
		}
		return nil, apperr.Extraction(op, err, "video splitting failed")
	}

	logger.WithField("segments", len(segments)).Info("Split completed")
	return segments, nil
}
