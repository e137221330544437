// Package watcher turns file system changes under the story directories
// into index invalidations.
//
// HybridWatcher watches one or more roots with fsnotify and falls back to
// polling where fsnotify is unavailable (network mounts, Docker volumes).
// Pool shares one HybridWatcher per set of roots between any number of
// listeners and stops it when the last listener releases. Coalescer
// collapses bursts of changes into a single invalidate-then-notify cycle.
//
//	pool := watcher.NewPool(watcher.DefaultOptions(), logger)
//	h, err := pool.Acquire([]string{"/p/src"}, func(ev watcher.FileEvent) {
//	    coalescer.OnChange(ev.Path, ev.Operation == watcher.OpDelete)
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
package watcher
