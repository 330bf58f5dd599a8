package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/damechen/video-editing/apperr"
)

// Transfer handles remote media movement: fetching source videos and
// pushing rendered output to a pre-signed upload URL.
type Transfer struct {
	client *http.Client
}

// NewTransfer creates a transfer service with the given per-request
// timeout.
func NewTransfer(timeout time.Duration) *Transfer {
	return &Transfer{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads url into destPath, buffering the whole body to disk.
func (t *Transfer) Fetch(ctx context.Context, url, destPath string) error {
	const op = "transfer.Fetch"

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return apperr.Fetch(op, err, "failed to create download directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Fetch(op, err, "invalid download URL")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Fetch(op, err, "failed to download video")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Fetch(op, fmt.Errorf("status %d", resp.StatusCode), "video download failed")
	}

	out, err := os.Create(destPath)
	if err != nil {
		return apperr.Fetch(op, err, "failed to create download file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return apperr.Fetch(op, err, "failed to write downloaded video")
	}

	return nil
}

// Upload PUTs the file's bytes to a pre-signed URL.
func (t *Transfer) Upload(ctx context.Context, filePath, url string) error {
	const op = "transfer.Upload"

	file, err := os.Open(filePath)
	if err != nil {
		return apperr.Upload(op, err, "failed to open file for upload")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return apperr.Upload(op, err, "failed to stat file for upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return apperr.Upload(op, err, "invalid upload URL")
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "video/mp4")

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Upload(op, err, "failed to upload video")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Upload(op, fmt.Errorf("status %d", resp.StatusCode), "video upload failed")
	}

	return nil
}
