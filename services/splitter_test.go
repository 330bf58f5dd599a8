package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/models"
	"github.com/damechen/video-editing/utils"
)

// fakeRunner records every invocation and delegates to a per-test handler,
// so pipeline logic runs without ffmpeg installed.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(name string, args []string) ([]byte, error)
}

type fakeCall struct {
	Name string
	Args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: args})
	f.mu.Unlock()

	if f.handler != nil {
		return f.handler(name, args)
	}
	return nil, nil
}

func (f *fakeRunner) callsFor(name string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []fakeCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// probeAndEncode answers duration probes with the given total and creates
// the output file of every ffmpeg call, mimicking a successful encode.
func probeAndEncode(total string) func(name string, args []string) ([]byte, error) {
	return func(name string, args []string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte(total + "\n"), nil
		}
		// Output path is the final argument.
		out := args[len(args)-1]
		if err := os.WriteFile(out, []byte("encoded"), 0644); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func f64(v float64) *float64 { return &v }

func testWorkspace(t *testing.T) *utils.Workspace {
	t.Helper()
	ws, err := utils.NewWorkspace(t.TempDir(), "test-request")
	require.NoError(t, err)
	return ws
}

var testProfile = utils.EncodeProfile{
	VideoCodec:   "libx264",
	CRF:          18,
	Preset:       "medium",
	AudioCodec:   "aac",
	AudioBitrate: "128k",
}

func TestSplitSegmentsTiming(t *testing.T) {
	runner := &fakeRunner{handler: probeAndEncode("40.000000")}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	prompts := []models.Prompt{
		{Text: "Intro", StartTime: f64(0)},
		{Text: "Q1", StartTime: f64(10)},
		{Text: "Q2", StartTime: f64(25)},
	}

	segments, err := s.Split(context.Background(), "/tmp/source.mp4", prompts, ws)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	expected := []struct {
		label    string
		start    float64
		end      float64
		duration float64
	}{
		{"Intro", 0, 10, 10},
		{"Q1", 10, 25, 15},
		{"Q2", 25, 40, 15},
	}

	total := 0.0
	for i, exp := range expected {
		assert.Equal(t, exp.label, segments[i].Label)
		assert.Equal(t, i, segments[i].Index)
		assert.Equal(t, exp.start, segments[i].StartTime)
		assert.Equal(t, exp.end, segments[i].EndTime)
		assert.Equal(t, exp.duration, segments[i].Duration)
		assert.FileExists(t, segments[i].Path)
		total += segments[i].Duration
	}
	assert.Equal(t, 40.0, total)

	// One uniform-profile encode per retained segment.
	encodes := runner.callsFor("ffmpeg")
	require.Len(t, encodes, 3)
	for _, call := range encodes {
		joined := strings.Join(call.Args, " ")
		assert.Contains(t, joined, "-c:v libx264")
		assert.Contains(t, joined, "-crf 18")
		assert.Contains(t, joined, "-avoid_negative_ts make_zero")
	}
}

func TestSplitDefaultsFirstStartToZero(t *testing.T) {
	runner := &fakeRunner{handler: probeAndEncode("30")}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	prompts := []models.Prompt{
		{Text: "Only"},
	}

	segments, err := s.Split(context.Background(), "/tmp/source.mp4", prompts, ws)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 0.0, segments[0].StartTime)
	assert.Equal(t, 30.0, segments[0].EndTime)
	assert.Equal(t, 30.0, segments[0].Duration)
}

func TestSplitSkipsNonPositiveDurations(t *testing.T) {
	runner := &fakeRunner{handler: probeAndEncode("40")}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	// The second prompt starts after the third: its interval is negative
	// and must be dropped without disturbing the rest.
	prompts := []models.Prompt{
		{Text: "A", StartTime: f64(0)},
		{Text: "B", StartTime: f64(25)},
		{Text: "C", StartTime: f64(10)},
	}

	segments, err := s.Split(context.Background(), "/tmp/source.mp4", prompts, ws)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	// Surviving segments still map back to their prompts.
	assert.Equal(t, "A", segments[0].Label)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, "C", segments[1].Label)
	assert.Equal(t, 2, segments[1].Index)
	assert.Equal(t, 10.0, segments[1].StartTime)
	assert.Equal(t, 40.0, segments[1].EndTime)
}

func TestSplitProbeFailure(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		return nil, errors.New("no such file")
	}}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	_, err := s.Split(context.Background(), "/tmp/missing.mp4", []models.Prompt{{Text: "A"}}, ws)
	require.Error(t, err)
	assert.Equal(t, apperr.StageProbe, apperr.Stage(err))
	assert.Empty(t, runner.callsFor("ffmpeg"))
}

func TestSplitEncodeFailureCleansPartials(t *testing.T) {
	encodeCount := 0
	runner := &fakeRunner{}
	runner.handler = func(name string, args []string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte("40"), nil
		}
		encodeCount++
		out := args[len(args)-1]
		if encodeCount == 2 {
			return nil, errors.New("encoder exploded")
		}
		return nil, os.WriteFile(out, []byte("encoded"), 0644)
	}

	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	prompts := []models.Prompt{
		{Text: "A", StartTime: f64(0)},
		{Text: "B", StartTime: f64(10)},
		{Text: "C", StartTime: f64(20)},
	}

	segments, err := s.Split(context.Background(), "/tmp/source.mp4", prompts, ws)
	require.Error(t, err)
	assert.Nil(t, segments)
	assert.Equal(t, apperr.StageExtraction, apperr.Stage(err))

	// Nothing already written may survive the failure.
	entries, readErr := os.ReadDir(ws.Root)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestSplitEmptyPrompts(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 1)
	ws := testWorkspace(t)

	_, err := s.Split(context.Background(), "/tmp/source.mp4", nil, ws)
	require.Error(t, err)
	assert.Equal(t, apperr.StageValidation, apperr.Stage(err))
	assert.Empty(t, runner.calls)
}

func TestSplitBoundedConcurrency(t *testing.T) {
	runner := &fakeRunner{handler: probeAndEncode("40")}
	s := NewSplitter(utils.NewFFmpeg(runner), testProfile, 4)
	ws := testWorkspace(t)

	prompts := []models.Prompt{
		{Text: "A", StartTime: f64(0)},
		{Text: "B", StartTime: f64(10)},
		{Text: "C", StartTime: f64(20)},
		{Text: "D", StartTime: f64(30)},
	}

	segments, err := s.Split(context.Background(), "/tmp/source.mp4", prompts, ws)
	require.NoError(t, err)
	require.Len(t, segments, 4)

	// Order of the returned slice is prompt order even when encodes ran
	// concurrently.
	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
	}
}
