package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Event struct {
	Path      string
	Op        string
	Timestamp time.Time
}

// Watcher watches a source tree recursively and reports change events.
// Names on the ignore list are filtered out so churn in ignored
// directories never triggers a backup.
type Watcher struct {
	fw      *fsnotify.Watcher
	ignore  map[string]struct{}
	eventCh chan Event
	doneCh  chan struct{}
	log     *zap.Logger
}

func New(bufferSize int, ignoreNames []string, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ignore := make(map[string]struct{}, len(ignoreNames))
	for _, name := range ignoreNames {
		ignore[name] = struct{}{}
	}

	return &Watcher{
		fw:      fw,
		ignore:  ignore,
		eventCh: make(chan Event, bufferSize),
		doneCh:  make(chan struct{}),
		log:     log,
	}, nil
}

func (w *Watcher) Watch(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}

	if err := w.addRecursive(absDir); err != nil {
		return err
	}

	go w.run()

	w.log.Info("watcher started",
		zap.String("dir", absDir))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if w.ignored(path) {
			return filepath.SkipDir
		}

		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching directory",
			zap.String("path", path))
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	_, ok := w.ignore[filepath.Base(path)]
	return ok
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			w.log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if w.ignored(fsEvent.Name) {
				continue
			}

			if fsEvent.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if err := w.fw.Add(fsEvent.Name); err != nil {
						w.log.Warn("failed to watch new directory",
							zap.String("path", fsEvent.Name),
							zap.Error(err))
					}
				}
			}

			event := Event{
				Path:      fsEvent.Name,
				Op:        fsEvent.Op.String(),
				Timestamp: time.Now(),
			}

			select {
			case w.eventCh <- event:
			default:
				w.log.Warn("event channel is full, dropping event",
					zap.String("path", fsEvent.Name))
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			w.log.Error("watcher error",
				zap.Error(err))
		}
	}
}

func (w *Watcher) Events() <-chan Event {
	return w.eventCh
}

func (w *Watcher) Stop() {
	close(w.doneCh)
	_ = w.fw.Close()
}
