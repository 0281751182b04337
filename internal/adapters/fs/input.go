package fs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/snapship/pkg/log"
)

// LevelFile simulates the active-low control input with a file holding the
// line level. "0" is low (pressed); anything else, or a missing file, reads
// as high because of the pull-up.
type LevelFile struct {
	path   string
	logger log.Logger
	wake   chan struct{}
}

// NewLevelFile creates an input backed by path.
func NewLevelFile(path string, logger log.Logger) *LevelFile {
	return &LevelFile{
		path:   path,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Pressed reads the level once.
func (f *LevelFile) Pressed() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(data), []byte("0"))
}

// Wake delivers a value each time the level is seen going low.
func (f *LevelFile) Wake() <-chan struct{} { return f.wake }

// Watch signals Wake on falling edges until ctx ends. The parent directory is
// watched so the file may be created or replaced atomically.
func (f *LevelFile) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	want := filepath.Clean(f.path)
	was := f.Pressed()
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != want {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				now := f.Pressed()
				if now && !was {
					f.signal()
				}
				was = now

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("input watcher", log.Err(err))
			}
		}
	}()
	return nil
}

func (f *LevelFile) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// LEDFile mirrors the status LED into a file as "1" or "0".
type LEDFile struct {
	mu     sync.Mutex
	path   string
	on     bool
	logger log.Logger
}

// NewLEDFile creates an LED backed by path.
func NewLEDFile(path string, logger log.Logger) *LEDFile {
	return &LEDFile{path: path, logger: logger}
}

// Set writes the new level. Repeated identical levels are not rewritten.
func (l *LEDFile) Set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on == l.on {
		if _, err := os.Stat(l.path); err == nil {
			return
		}
	}
	l.on = on
	v := []byte("0\n")
	if on {
		v = []byte("1\n")
	}
	if err := os.WriteFile(l.path, v, 0o644); err != nil {
		l.logger.Debug("write led file", log.Err(err))
	}
}
