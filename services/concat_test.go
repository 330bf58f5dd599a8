package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damechen/video-editing/apperr"
	"github.com/damechen/video-editing/utils"
)

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestConcatenateManifest(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")}

	var manifestContent string
	var manifestPath string
	runner := &fakeRunner{}
	runner.handler = func(name string, args []string) ([]byte, error) {
		// Capture the manifest while it still exists.
		manifestPath = argAfter(args, "-i")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return nil, err
		}
		manifestContent = string(data)
		return nil, os.WriteFile(args[len(args)-1], []byte("joined"), 0644)
	}

	c := NewConcatenator(utils.NewFFmpeg(runner), testProfile, true)
	outPath := filepath.Join(dir, "out.mp4")

	require.NoError(t, c.Concatenate(context.Background(), inputs, outPath))

	// One invocation over the whole ordered manifest, absolute paths.
	require.Len(t, runner.calls, 1)
	lines := strings.Split(strings.TrimSpace(manifestContent), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		abs, _ := filepath.Abs(inputs[i])
		assert.Equal(t, fmt.Sprintf("file '%s'", abs), line)
	}

	// Manifest is gone after the operation.
	assert.NoFileExists(t, manifestPath)
	assert.FileExists(t, outPath)
}

func TestConcatenateReencodePolicy(t *testing.T) {
	tests := []struct {
		name     string
		reencode bool
		want     string
		notWant  string
	}{
		{
			name:     "re-encode uses the uniform profile",
			reencode: true,
			want:     "-c:v libx264",
			notWant:  "-c copy",
		},
		{
			name:     "stream copy keeps original bitstreams",
			reencode: false,
			want:     "-c copy",
			notWant:  "-c:v libx264",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
				return nil, os.WriteFile(args[len(args)-1], nil, 0644)
			}}
			c := NewConcatenator(utils.NewFFmpeg(runner), testProfile, tt.reencode)

			err := c.Concatenate(context.Background(),
				[]string{"/tmp/a.mp4", "/tmp/b.mp4"},
				filepath.Join(dir, "out.mp4"))
			require.NoError(t, err)

			joined := strings.Join(runner.calls[0].Args, " ")
			assert.Contains(t, joined, "-f concat")
			assert.Contains(t, joined, "-safe 0")
			assert.Contains(t, joined, tt.want)
			assert.NotContains(t, joined, tt.notWant)
		})
	}
}

func TestConcatenateTooFewInputs(t *testing.T) {
	runner := &fakeRunner{}
	c := NewConcatenator(utils.NewFFmpeg(runner), testProfile, true)

	err := c.Concatenate(context.Background(), []string{"/tmp/only.mp4"}, "/tmp/out.mp4")
	require.Error(t, err)
	assert.Equal(t, apperr.StageValidation, apperr.Stage(err))
	assert.Empty(t, runner.calls)
}

func TestConcatenateFailureLeavesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.mp4")

	runner := &fakeRunner{}
	runner.handler = func(name string, args []string) ([]byte, error) {
		// Simulate ffmpeg writing a partial file before dying.
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0644)
		return nil, errors.New("demux error")
	}

	c := NewConcatenator(utils.NewFFmpeg(runner), testProfile, true)
	err := c.Concatenate(context.Background(), []string{"/tmp/a.mp4", "/tmp/b.mp4"}, outPath)
	require.Error(t, err)
	assert.Equal(t, apperr.StageConcatenation, apperr.Stage(err))

	// Neither the partial output nor the manifest survives.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
