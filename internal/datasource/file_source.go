package datasource

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
)

// FileDataSource is a development-mode Data Source that loads a full flag/segment snapshot from a
// local JSON file and reloads it whenever the file changes on disk. It carries forward the
// fsnotify file-watch idiom, retargeted at spec.md's relay/local
// data path rather than at a standalone file-authoring format (which SPEC_FULL.md's domain stack
// section places out of scope beyond this reload mechanism).
type FileDataSource struct {
	path    string
	updates interfaces.DataSourceUpdateSink
	loggers ldlog.Loggers

	watcher *fsnotify.Watcher

	initialized bool
	mu          sync.RWMutex

	closeOnce sync.Once
	quit      chan struct{}
}

// NewFileDataSource constructs a file-backed Data Source that watches path for changes.
func NewFileDataSource(path string, updates interfaces.DataSourceUpdateSink, loggers ldlog.Loggers) *FileDataSource {
	return &FileDataSource{
		path:    path,
		updates: updates,
		loggers: loggers,
		quit:    make(chan struct{}),
	}
}

//nolint:revive // no doc comment for standard method
func (f *FileDataSource) Start(closeWhenReady chan<- struct{}) {
	var readyOnce sync.Once
	notifyReady := func() {
		readyOnce.Do(func() { close(closeWhenReady) })
	}

	if err := f.reload(); err != nil {
		f.loggers.Errorf("failed to load initial snapshot from %s: %s", f.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.loggers.Errorf("unable to start file watcher for %s: %s", f.path, err)
		notifyReady()
		return
	}
	f.watcher = watcher
	if err := watcher.Add(f.path); err != nil {
		f.loggers.Errorf("unable to watch %s: %s", f.path, err)
	}

	go func() {
		defer notifyReady()
		for {
			select {
			case <-f.quit:
				watcher.Close()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := f.reload(); err != nil {
					f.loggers.Warnf("failed to reload %s after change: %s", f.path, err)
					continue
				}
				if !f.IsInitialized() {
					f.setInitialized()
					notifyReady()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.loggers.Warnf("file watcher error for %s: %s", f.path, err)
			}
		}
	}()

	if f.IsInitialized() {
		notifyReady()
	}
}

func (f *FileDataSource) reload() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.path, err)
	}
	var payload allDataPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parsing %s: %w", f.path, err)
	}
	if err := f.updates.Init(payload.toCollections()); err != nil {
		return err
	}
	f.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{Time: time.Now()})
	f.setInitialized()
	return nil
}

func (f *FileDataSource) setInitialized() {
	f.mu.Lock()
	f.initialized = true
	f.mu.Unlock()
}

//nolint:revive // no doc comment for standard method
func (f *FileDataSource) IsInitialized() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.initialized
}

//nolint:revive // no doc comment for standard method
func (f *FileDataSource) Close() error {
	f.closeOnce.Do(func() {
		close(f.quit)
	})
	return nil
}

var _ interfaces.DataSource = (*FileDataSource)(nil)
