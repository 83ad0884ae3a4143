// Package watcher watches component directories and delivers debounced,
// filtered batches of file changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wane/wane-sub001/internal/logging"
)

// FileWatcher watches for file changes with debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	stopOnce  sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles one debounced batch of events, sorted by path.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// skipDirs are not watched.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
}

// NewFileWatcher creates a new file watcher. A nil logger discards.
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	debouncer := &Debouncer{
		delay:   debounceDelay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}

	return &FileWatcher{
		watcher:   watcher,
		debouncer: debouncer,
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter. An event must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath adds a path to watch
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return fw.watcher.Add(cleanPath)
}

// AddRecursive adds a directory and all subdirectories to watch
func (fw *FileWatcher) AddRecursive(root string) error {
	cleanRoot, err := validatePath(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	return filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != cleanRoot && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// WatchList returns the watched directories, sorted.
func (fw *FileWatcher) WatchList() []string {
	list := fw.watcher.WatchList()
	sort.Strings(list)
	return list
}

// validatePath cleans path and rejects parent references.
func validatePath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains a NUL byte")
	}
	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return "", fmt.Errorf("path contains directory traversal: %s", path)
		}
	}
	return cleanPath, nil
}

// Start starts the file watcher. It returns immediately; events are
// processed until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	// New directories are watched before filtering so that files created
	// inside them later are seen.
	if statErr == nil && info.IsDir() {
		if event.Op.Has(fsnotify.Create) && !skipDirs[filepath.Base(event.Name)] {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
			}
		}
		return
	}

	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var modTime time.Time
	var size int64
	if statErr == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	changeEvent := ChangeEvent{
		Type:    eventTypeOf(event.Op),
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	}

	select {
	case fw.debouncer.events <- changeEvent:
	default:
		fw.logger.Warn(ctx, nil, "Dropping file event, debouncer is full", "path", event.Name)
	}
}

func eventTypeOf(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					fw.logger.Error(ctx, err, "File watcher handler error", "events", len(events))
				}
			}
		}
	}
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// The last event per path wins.
	eventMap := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		eventMap[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(eventMap))
	for _, event := range eventMap {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// ComponentFilter accepts the files a component is made of.
func ComponentFilter(path string) bool {
	for _, ext := range []string{".w.html", ".meta.yaml", ".css", ".go"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func GoFilter(path string) bool {
	return filepath.Ext(path) == ".go"
}

func NoTestFilter(path string) bool {
	base := filepath.Base(path)
	matched1, _ := filepath.Match("*_test.go", base)
	matched2, _ := filepath.Match("*_test.w.html", base)
	return !matched1 && !matched2
}

func NoVendorFilter(path string) bool {
	path = filepath.ToSlash(path)
	return !strings.HasPrefix(path, "vendor/") && !strings.Contains(path, "/vendor/")
}

func NoGitFilter(path string) bool {
	path = filepath.ToSlash(path)
	return !strings.HasPrefix(path, ".git/") && !strings.Contains(path, "/.git/")
}

// NoHiddenFilter rejects editor swap and backup files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
