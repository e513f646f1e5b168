package ports

import (
	"context"
	"time"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	Created ChangeType = iota
	Modified
	Deleted
)

// String returns a human-readable change type
func (t ChangeType) String() string {
	switch t {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileChangeEvent describes one observed change under a watched subtree
type FileChangeEvent struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
}

// TreeWatcher observes a directory subtree for changes. The returned channel
// is closed when ctx is cancelled; hidden entries are never reported.
type TreeWatcher interface {
	Watch(ctx context.Context, root string) (<-chan FileChangeEvent, error)
}
