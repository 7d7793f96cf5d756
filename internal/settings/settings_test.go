package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
)

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestOpenMissingFile(t *testing.T) {
	s := openTemp(t)
	got := s.GroupOptions("home")
	if got.GroupBy != grouping.GroupDefault || got.SortBy != grouping.SortDateEdited || got.SortDirection != grouping.Desc {
		t.Errorf("defaults = %+v", got)
	}
	if len(s.Pins()) != 0 {
		t.Errorf("pins = %v", s.Pins())
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("file created without a write")
	}
}

func TestGroupOptionsPersist(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	err := s.SetGroupOptions(ctx, "notes", grouping.Options{GroupBy: grouping.GroupABC, SortBy: grouping.SortDateCreated})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.GroupOptions("notes"); got.SortBy != grouping.SortTitle || got.SortDirection != grouping.Asc {
		t.Errorf("abc options = %+v, want title asc", got)
	}

	reopened, err := Open(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.GroupOptions("notes"); got.GroupBy != grouping.GroupABC || got.SortBy != grouping.SortTitle {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestPinUnpin(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a"} {
		if err := s.Pin(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Pins(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("pins = %v", got)
	}
	if err := s.Unpin(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unpin(ctx, "zzz"); err != nil {
		t.Fatal(err)
	}
	if s.Pinned("a") || !s.Pinned("b") {
		t.Errorf("pins = %v", s.Pins())
	}

	reopened, _ := Open(s.Path())
	if got := reopened.Pins(); len(got) != 1 || got[0] != "b" {
		t.Errorf("reloaded pins = %v", got)
	}
}

func TestOpenInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("groups: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWatchReloadsExternalEdit(t *testing.T) {
	bus := events.NewBus(nil)
	var reloads atomic.Int32
	bus.Subscribe(events.SettingsReloaded, events.Notify(func(context.Context, any) {
		reloads.Add(1)
	}))
	s := openTemp(t, WithPublisher(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Own writes do not count as external edits.
	if err := s.Pin(ctx, "self"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * reloadDelay)
	if n := reloads.Load(); n != 0 {
		t.Errorf("own write published %d reloads", n)
	}

	edit := []byte("pins:\n  - external\n")
	if err := os.WriteFile(s.Path(), edit, 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return s.Pinned("external") && !s.Pinned("self")
	}, "external edit not reloaded")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "SettingsReloaded not published")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop")
	}
}
