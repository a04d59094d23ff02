package assets

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codeyousef/materia/gpu/core"
)

// Watcher reports file creations and writes under a directory tree.
// Directories created while watching are picked up as well.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	onChange func(path string)
	done     chan struct{}
}

func NewWatcher(dir string, onChange func(path string)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := w.addRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch new directory %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.onChange(e.Name)
			}
			// Can't stat a deleted entry, so just try to remove it from the
			// watch list in case it was a directory.
			if e.Op&fsnotify.Remove != 0 {
				w.fsnotify.Remove(e.Name)
			}

		case e, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// addRecursive adds all directories under the given one to the watch list.
func (w *Watcher) addRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := w.fsnotify.Add(walkPath); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Watcher) Close() {
	close(w.done)
}
