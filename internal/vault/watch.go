package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven change. kind is one of
// "imported" or "removed"; rel is the vault path.
type EventCallback func(kind, rel string)

const reconcileDelay = 200 * time.Millisecond

// Watch keeps the database in step with the vault until ctx is cancelled.
// Created or written files are imported, removed files trash their note.
// New directories are added to the watch list. A rename schedules a full
// import pass, since fsnotify reports only the old name.
func (im *Importer) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, im.dir.Root()); err != nil {
		return err
	}
	im.logger.Info("vault watcher: started", slog.String("root", im.dir.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
		reconcileCh = reconcileTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			im.logger.Info("vault watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileCh = nil
			if _, err := im.Import(ctx); err != nil {
				im.logger.Warn("vault watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			im.handle(ctx, w, ev, cb, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("vault watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (im *Importer) handle(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event, cb EventCallback, reconcile func()) {
	if hidden(filepath.Base(ev.Name)) {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, ev.Name); err != nil {
				im.logger.Warn("vault watcher: add new dir failed",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			// Files may have landed before the directory was watched.
			reconcile()
			return
		}
	}
	if !strings.HasSuffix(ev.Name, ".md") {
		return
	}
	rel, err := im.dir.rel(ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		_, outcome, err := im.ImportFile(ctx, rel)
		if err != nil {
			im.logger.Warn("vault watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if outcome == Imported && cb != nil {
			cb("imported", rel)
		}

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if err := im.Remove(ctx, rel); err != nil {
			im.logger.Warn("vault watcher: remove failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if cb != nil {
			cb("removed", rel)
		}
		if ev.Op&fsnotify.Rename != 0 {
			reconcile()
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
