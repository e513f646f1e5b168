package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/siteforge/siteforge/internal/domain/ports"
)

// RecursiveWatcher implements directory-tree watching using polling. Each
// Watch call owns its own snapshot state, so one watcher instance can serve
// many sites concurrently. Hidden entries (dot-prefixed files and
// directories) are never scanned or reported.
type RecursiveWatcher struct {
	interval time.Duration
	debounce time.Duration
	logger   *slog.Logger
}

// fileState stores what we last saw for one path
type fileState struct {
	size    int64
	modTime time.Time
}

// NewRecursiveWatcher creates a polling-based tree watcher
func NewRecursiveWatcher(interval, debounce time.Duration, logger *slog.Logger) *RecursiveWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecursiveWatcher{
		interval: interval,
		debounce: debounce,
		logger:   logger.With("adapter", "watcher"),
	}
}

// Watch starts watching the subtree rooted at root. The returned channel is
// closed when ctx is cancelled.
func (w *RecursiveWatcher) Watch(ctx context.Context, root string) (<-chan ports.FileChangeEvent, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}

	snapshot, err := w.scanTree(absRoot)
	if err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}

	events := make(chan ports.FileChangeEvent, 16)
	go w.pollLoop(ctx, absRoot, snapshot, events)
	return events, nil
}

// pollLoop rescans the tree at the configured interval and emits a debounced
// event per changed path
func (w *RecursiveWatcher) pollLoop(ctx context.Context, root string, snapshot map[string]fileState, events chan<- ports.FileChangeEvent) {
	defer close(events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastEvent := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := w.scanTree(root)
			if err != nil {
				w.logger.Warn("scanning watched tree",
					slog.String("root", root),
					slog.String("error", err.Error()),
				)
				continue
			}

			for _, change := range diffSnapshots(snapshot, current) {
				if since, seen := lastEvent[change.Path]; seen && time.Since(since) < w.debounce {
					continue
				}
				select {
				case events <- change:
					lastEvent[change.Path] = time.Now()
				case <-ctx.Done():
					return
				}
			}
			snapshot = current
		}
	}
}

// scanTree walks the subtree and records size and mtime per regular file
func (w *RecursiveWatcher) scanTree(root string) (map[string]fileState, error) {
	snapshot := make(map[string]fileState)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries may vanish mid-walk while the external tool rewrites
			// output; skip rather than abort.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snapshot[path] = fileState{size: info.Size(), modTime: info.ModTime()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// diffSnapshots compares two tree snapshots and returns one event per
// created, modified or deleted path
func diffSnapshots(prev, current map[string]fileState) []ports.FileChangeEvent {
	var changes []ports.FileChangeEvent
	now := time.Now()

	for path, state := range current {
		old, existed := prev[path]
		switch {
		case !existed:
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Created, Timestamp: now})
		case old.size != state.size || !old.modTime.Equal(state.modTime):
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Modified, Timestamp: now})
		}
	}
	for path := range prev {
		if _, exists := current[path]; !exists {
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Deleted, Timestamp: now})
		}
	}
	return changes
}

// isHidden reports whether a directory entry name is hidden
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
