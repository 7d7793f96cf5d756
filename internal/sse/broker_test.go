package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notebase/internal/events"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.updated", Data: events.Change{ID: "n1", Kind: "note"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"n1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_RefreshThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(events.NoteUpdated, events.Change{ID: "a", Kind: "note"})
	b.PublishChange(events.NoteDeleted, events.Change{ID: "b", Kind: "note"})

	time.Sleep(50 * time.Millisecond)
	refresh, changes := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+RefreshEvent) {
			refresh++
		} else {
			changes++
		}
	}
	if changes != 2 {
		t.Errorf("change events = %d, want 2", changes)
	}
	if refresh != 1 {
		t.Errorf("refresh events = %d, want 1 (throttled)", refresh)
	}
}

func TestAttachRelaysBusEvents(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	bus := events.NewBus(nil)
	detach := b.Attach(bus)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	_, _ = bus.Publish(context.Background(), events.NotebookDeleted, events.Change{ID: "nb", Kind: "notebook"})
	_, _ = bus.Publish(context.Background(), events.UserCheckStatus, events.StatusCheck{Kind: events.CheckNotebookAdd})
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 2 || !strings.Contains(msgs[0], "event: notebook.deleted") || !strings.Contains(msgs[0], `"id":"nb"`) {
		t.Fatalf("messages = %q", msgs)
	}

	detach()
	_, _ = bus.Publish(context.Background(), events.NoteUpdated, events.Change{ID: "n"})
	time.Sleep(50 * time.Millisecond)
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("detached broker relayed %q", msgs)
	}
}

func TestEventType(t *testing.T) {
	if got := EventType(events.SettingsReloaded); got != "settings.reloaded" {
		t.Errorf("EventType = %q", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange(events.NoteUpdated, events.Change{ID: "x", Kind: "note"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 64 messages; the rest are dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "note.updated"})
	b.PublishChange(events.NoteUpdated, events.Change{ID: "x"})
}
