package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/syntor/forge/pkg/logging"
)

// Watcher reloads the configuration when one of its files changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	load     func() (*ForgeConfig, error)
	onChange func(*ForgeConfig)
	logger   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher watches paths and calls onChange with the result of load after
// each write. Directories are watched rather than files so that editors which
// replace files on save are still seen. Missing directories are skipped.
func NewWatcher(paths []string, load func() (*ForgeConfig, error), onChange func(*ForgeConfig), logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool),
		load:     load,
		onChange: onChange,
		logger:   logger.With(logging.String("component", "config-watcher")),
	}

	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Start runs the event loop until ctx is done or Close is called
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logging.Err(err))
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	config, err := w.load()
	if err != nil {
		w.logger.Warn("config reload failed", logging.String("file", event.Name), logging.Err(err))
		return
	}
	w.logger.Info("config reloaded", logging.String("file", event.Name))
	w.onChange(config)
}

// Close stops the watcher and cleans up
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
