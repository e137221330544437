package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away from Path.
	OpRename
	// OpGitignoreChange indicates a .gitignore file was created, modified
	// or removed. File selection may have changed anywhere below it.
	OpGitignoreChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// Removed reports whether the path no longer exists after the operation.
func (op Operation) Removed() bool {
	return op == OpDelete || op == OpRename
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher defines the interface for file system watching.
type Watcher interface {
	// Start begins watching the given roots recursively and blocks until
	// Stop is called or ctx ends.
	Start(ctx context.Context, roots ...string) error

	// Ready is closed once the initial watches are in place.
	Ready() <-chan struct{}

	// Stop stops the watcher and releases resources.
	// Safe to call multiple times.
	Stop() error

	// Events returns a channel of file events.
	// The channel is closed when the watcher stops.
	Events() <-chan FileEvent

	// Errors returns a channel of watcher errors.
	// Non-fatal errors are sent here; the watcher continues running.
	// The channel is closed when the watcher stops.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// PollInterval is the interval for polling mode (fallback).
	// Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 1000
	EventBufferSize int

	// IgnoreDirs are directory names never watched, in addition to
	// node_modules and .git.
	IgnoreDirs []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		PollInterval:    2 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
