package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumegenius/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// watchGroup is a set of files reloaded together
type watchGroup struct {
	name     string
	files    []string
	onChange func()
}

// FileWatcher watches groups of files (certificates, prompt files) and
// calls each group's callback once per debounced burst of changes
type FileWatcher struct {
	mu sync.RWMutex

	groups      []watchGroup
	lastModTime map[string]time.Time

	fsWatcher      *fsnotify.Watcher
	debounceDelay  time.Duration
	debounceTimers map[int]*time.Timer

	stopChan   chan struct{}
	reloadChan chan int

	logger  *errors.Logger
	running bool
}

// NewFileWatcher creates a watcher. A zero delay defaults to one second.
func NewFileWatcher(debounceDelay time.Duration, logger *errors.Logger) *FileWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &FileWatcher{
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		debounceTimers: make(map[int]*time.Timer),
		stopChan:       make(chan struct{}),
		logger:         logger,
	}
}

// Watch registers a group. It must be called before Start.
func (fw *FileWatcher) Watch(name string, files []string, onChange func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			cleaned = append(cleaned, filepath.Clean(f))
		}
	}
	if len(cleaned) == 0 {
		return
	}
	fw.groups = append(fw.groups, watchGroup{name: name, files: cleaned, onChange: onChange})
}

// Start begins watching every registered file
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("file watcher is already running")
	}
	if len(fw.groups) == 0 {
		return fmt.Errorf("no files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher
	fw.reloadChan = make(chan int, len(fw.groups))

	files := fw.watchedFilesLocked()
	for _, file := range files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		}
		if err := fw.addFileToWatcher(file); err != nil {
			fw.logger.Warn("Failed to watch file", "file", file, "error", err)
		}
	}

	fw.running = true
	go fw.watchLoop()

	fw.logger.Info("File watcher started",
		"files", files,
		"debounce_delay", fw.debounceDelay)
	return nil
}

// Stop stops the watcher
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}
	close(fw.stopChan)
	for _, t := range fw.debounceTimers {
		t.Stop()
	}
	fw.running = false

	if err := fw.fsWatcher.Close(); err != nil {
		fw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	fw.logger.Info("File watcher stopped")
	return nil
}

// addFileToWatcher watches the file's directory so atomic renames are seen
func (fw *FileWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (fw *FileWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			for _, idx := range fw.groupsFor(event) {
				fw.scheduleReload(idx)
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			fw.logger.LogError(err, "File watcher error")

		case idx := <-fw.reloadChan:
			g := fw.group(idx)
			if fw.hasGroupChanged(g) {
				fw.logger.Info("Watched files changed, reloading", "group", g.name)
				g.onChange()
			}

		case <-fw.stopChan:
			return
		}
	}
}

// groupsFor returns the indexes of groups containing the event's file
func (fw *FileWatcher) groupsFor(event fsnotify.Event) []int {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return nil
	}
	name := filepath.Clean(event.Name)

	fw.mu.RLock()
	defer fw.mu.RUnlock()

	var out []int
	for i, g := range fw.groups {
		for _, f := range g.files {
			if f == name {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func (fw *FileWatcher) group(idx int) watchGroup {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.groups[idx]
}

// hasGroupChanged compares modification times; it runs only on the loop goroutine
func (fw *FileWatcher) hasGroupChanged(g watchGroup) bool {
	changed := false
	for _, file := range g.files {
		if fw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := fw.lastModTime[file]; exists {
				delete(fw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := fw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

// scheduleReload restarts the group's debounce timer
func (fw *FileWatcher) scheduleReload(idx int) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if t, ok := fw.debounceTimers[idx]; ok {
		t.Stop()
	}
	fw.debounceTimers[idx] = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- idx:
		default:
			// already queued
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// GetWatchedFiles returns every watched file
func (fw *FileWatcher) GetWatchedFiles() []string {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.watchedFilesLocked()
}

func (fw *FileWatcher) watchedFilesLocked() []string {
	var files []string
	for _, g := range fw.groups {
		files = append(files, g.files...)
	}
	return files
}
