package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner runs one external tool invocation to completion and
// returns its stdout. The pipeline never shells out directly; injecting a
// fake runner keeps the timing and manifest logic testable without ffmpeg
// installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// Run blocks until the command exits. A non-zero exit status is returned
// as an error carrying the captured stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s error: %w, stderr: %s", name, err, stderr.String())
	}

	return stdout.Bytes(), nil
}
