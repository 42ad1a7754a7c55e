package engine

import "log"
import "path/filepath"

import "github.com/fsnotify/fsnotify"

// watchDataFile is a purely diagnostic companion to the engine: it watches
// the data file's directory and logs a warning if the file is removed or
// replaced out from under the engine while open (an operator running `rm` or
// a misbehaving external tool, not anything the engine itself does). It
// never alters engine state or any request outcome.
type watcher struct {
	w *fsnotify.Watcher
}

func watchDataFile(path string) *watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("engine: data file watch disabled, could not start fsnotify: %v", err)
		return nil
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		log.Printf("engine: data file watch disabled, could not watch %s: %v", dir, err)
		w.Close()
		return nil
	}

	base := filepath.Base(path)
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Printf("engine: data file %s changed externally (%s)", path, event.Op)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("engine: data file watch error: %v", err)
			}
		}
	}()

	return &watcher{w: w}
}

func (w *watcher) close() {
	if w == nil {
		return
	}
	w.w.Close()
}
