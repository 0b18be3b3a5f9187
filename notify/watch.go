package notify

import (
	"github.com/fsnotify/fsnotify"
)

// Watch is a filesystem watch on a collection directory: create, write,
// remove, and rename events on any file in it are translated into
// collection-changed notifications, so that writers in another process
// still produce in-process notifications for this Hub's subscribers.
type Watch struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// StartWatch opens a filesystem watch on dir and wires its events into
// hub.PublishExternal. The returned Watch must be closed to release the
// underlying watcher.
func StartWatch(dir string, hub *Hub) (*Watch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watch{watcher: watcher, done: make(chan struct{})}
	go w.loop(hub)
	return w, nil
}

func (w *Watch) loop(hub *Hub) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				hub.PublishExternal()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying watcher.
func (w *Watch) Close() error {
	close(w.done)
	return w.watcher.Close()
}
