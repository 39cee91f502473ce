// ABOUTME: File watching for continuous correction of translated documents
// ABOUTME: Debounces fsnotify events per file before invoking the callback
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange(path) after a file in paths is written or replaced and then stays quiet
// for debounce. Parent directories are watched so atomic rename-over saves are seen.
// It blocks until ctx ends and returns nil in that case.
func Watch(ctx context.Context, paths []string, debounce time.Duration, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	fired := make(chan string, len(paths))
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-fired:
			onChange(path)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path, err := filepath.Abs(ev.Name)
			if err != nil || !wanted[path] {
				continue
			}
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(debounce)
			} else {
				timers[path] = time.AfterFunc(debounce, func() {
					select {
					case fired <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching files: %w", err)
		}
	}
}
