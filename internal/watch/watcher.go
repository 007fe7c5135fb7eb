// Package watch turns file-system changes under a project into batches of
// changed project-relative paths.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a batch
// is delivered.
const DefaultDebounce = 200 * time.Millisecond

// BatchFunc receives the sorted, de-duplicated paths changed since the last
// batch, in slash form relative to the project root.
type BatchFunc func(ctx context.Context, changed []string)

// Options tunes Watch.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch starts an fsnotify watcher on root and delivers change batches to fn
// until ctx is cancelled. Entries whose name starts with "." or "_" (output
// and scratch directories among them) are ignored. New directories created
// at runtime are added to the watch list and their files reported.
func Watch(ctx context.Context, root string, opts Options, fn BatchFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}
	mark := func(absPath string) {
		rel, ok := relPath(root, absPath)
		if !ok {
			return
		}
		pending[rel] = struct{}{}
		schedule()
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})
			logger.Debug("watcher: batch", slog.Int("files", len(batch)))
			fn(ctx, batch)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			if _, ok := relPath(root, absPath); !ok {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					markDir(absPath, mark)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				mark(absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relPath returns the slash-form path of absPath under root, rejecting
// paths outside root and ignored entries.
func relPath(root, absPath string) (string, bool) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if ignored(seg) {
			return "", false
		}
	}
	return rel, true
}

func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// markDir reports every file already present in a newly created directory.
func markDir(dirPath string, mark func(string)) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != dirPath && ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			mark(p)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-ignored subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
