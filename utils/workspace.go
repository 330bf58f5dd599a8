package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Workspace tracks every on-disk artifact created while servicing one
// request and deletes them as a unit. Each request gets its own root
// directory so concurrent requests never collide.
type Workspace struct {
	RequestID string
	Root      string

	mu      sync.Mutex
	paths   []string
	cleaned bool
}

// NewWorkspace creates the request-scoped root directory under baseDir.
// The root itself is registered, so Cleanup removes everything placed
// inside it.
func NewWorkspace(baseDir, requestID string) (*Workspace, error) {
	root := filepath.Join(baseDir, requestID)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", root, err)
	}

	w := &Workspace{
		RequestID: requestID,
		Root:      root,
	}
	w.paths = append(w.paths, root)
	return w, nil
}

// Register adds a path outside the workspace root to the deletion set.
// Paths inside Root are covered already.
func (w *Workspace) Register(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = append(w.paths, path)
}

// Path returns a file path inside the workspace root.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Root, name)
}

// Cleanup deletes every registered path. Deletion is best-effort: a
// failure is logged and the remaining paths are still removed. Calling
// Cleanup again is a no-op.
func (w *Workspace) Cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cleaned {
		return
	}
	w.cleaned = true

	for _, path := range w.paths {
		if err := os.RemoveAll(path); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"request_id": w.RequestID,
				"path":       path,
			}).Warn("Failed to remove workspace path")
		}
	}
	w.paths = nil
}

// CleanupHandle is a scheduled workspace deletion that can be canceled,
// or fired early by tests instead of waiting for the timer.
//
// Fire must not read the timer field: the timer callback can run before
// CleanupAfter has assigned it when the delay is zero. The timer is only
// consulted by Cancel, which the holder calls after CleanupAfter returns.
type CleanupHandle struct {
	once  sync.Once
	timer *time.Timer
	ws    *Workspace
}

// CleanupAfter schedules Cleanup to run once after delay. Used when the
// final output is still being streamed to the client: deletion must not
// race the transfer, so it is deferred by a grace interval instead of
// blocking the response path.
func (w *Workspace) CleanupAfter(delay time.Duration) *CleanupHandle {
	h := &CleanupHandle{ws: w}
	h.timer = time.AfterFunc(delay, h.Fire)
	return h
}

// Fire runs the scheduled cleanup immediately, at most once. The timer
// is left alone; if it still fires later, once makes that a no-op.
func (h *CleanupHandle) Fire() {
	h.once.Do(h.ws.Cleanup)
}

// Cancel stops the scheduled cleanup without running it.
func (h *CleanupHandle) Cancel() {
	h.once.Do(func() {})
	h.timer.Stop()
}
