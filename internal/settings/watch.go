package settings

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notebase/internal/events"
)

const reloadDelay = 100 * time.Millisecond

// Watch reloads the settings whenever the file changes on disk, until ctx
// is cancelled. The parent directory is watched so editors that save by
// rename are noticed. Changes written by the store itself are ignored.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.path)
	s.logger.Info("settings: watching", slog.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-fire:
			fire = nil
			changed, err := s.reload()
			if err != nil {
				s.logger.Warn("settings: reload failed", slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			s.logger.Info("settings: reloaded", slog.String("path", target))
			if s.publisher != nil {
				if _, err := s.publisher.Publish(ctx, events.SettingsReloaded, target); err != nil {
					s.logger.Warn("settings: reload listener failed", slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("settings: watcher error", slog.String("error", err.Error()))
		}
	}
}
