package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/scrivano/internal/journal"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
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

func TestPublishRunEventDelivery(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRunEvent("run.succeeded", journal.Run{
		ID:       "01J0000000000000000000TEST",
		Prompt:   "idea.txt",
		Category: "models",
		NotePath: "notebook/models/idea.md",
		Status:   journal.StatusOK,
	})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: run.succeeded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"prompt":"idea.txt"`) {
			t.Errorf("missing prompt in %q", s)
		}
		if !strings.Contains(s, `"note_path":"notebook/models/idea.md"`) {
			t.Errorf("missing note path in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishRunEvent_StatsThrottle(t *testing.T) {
	b := NewBroker(500*time.Millisecond, func() any {
		return journal.Stats{Total: 3, Succeeded: 2, Failed: 1}
	})
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger stats.updated; the immediate second
	// event must be throttled.
	b.PublishRunEvent("run.succeeded", journal.Run{Prompt: "a.txt", Status: journal.StatusOK})
	b.PublishRunEvent("run.failed", journal.Run{Prompt: "b.txt", Status: journal.StatusFailed})

	time.Sleep(50 * time.Millisecond)
	statsCount := 0
	runCount := 0
	var statsMsg string
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "stats.updated") {
				statsCount++
				statsMsg = string(msg)
			} else {
				runCount++
			}
		default:
			break loop
		}
	}

	if runCount != 2 {
		t.Errorf("expected 2 run events, got %d", runCount)
	}
	if statsCount != 1 {
		t.Errorf("expected 1 stats.updated event, got %d", statsCount)
	}
	// The event carries the stats snapshot, not an empty refresh ping.
	if !strings.Contains(statsMsg, `"total":3`) || !strings.Contains(statsMsg, `"failed":1`) {
		t.Errorf("stats snapshot missing from %q", statsMsg)
	}
}

func TestServeHTTPStreams(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription to land before publishing.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(Event{Type: "ping", Data: map[string]string{"ok": "1"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: ping") {
		t.Errorf("missing ping event in %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	b.Close()
	b.Close()

	// All operations become no-ops after close.
	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel from Subscribe after Close")
	}
	b.Publish(Event{Type: "x"})
	if n := b.ClientCount(); n != 0 {
		t.Errorf("expected 0 clients after close, got %d", n)
	}
}
