package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Notification
}

func (s *blockingSink) Notify(_ context.Context, n Notification) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, n)
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Notification{Kind: KindNetworkError})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Notification{Kind: KindServerError, StatusCode: 500 + i})
	}
	d.Close()

	if got := len(sink.Notifications()); got != 3 {
		t.Fatalf("expected 3 delivered notifications, got %d", got)
	}
	d.Emit(context.Background(), Notification{Kind: KindServerError})
	if got := len(sink.Notifications()); got != 3 {
		t.Fatalf("expected emit after close to be ignored, got %d", got)
	}
}

func TestDispatcherDropIfFullCounts(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Notification{Kind: KindNetworkError})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops while sink is blocked")
	}
	close(sink.release)
	d.Close()

	sink.mu.Lock()
	delivered := len(sink.got)
	sink.mu.Unlock()
	if uint64(delivered)+d.Dropped() != 10 {
		t.Fatalf("expected delivered+dropped == 10, got %d+%d", delivered, d.Dropped())
	}
}

func TestDispatcherCoalescesRepeatedNetworkErrors(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16, CoalesceWindow: 2 * time.Second}, sink)

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	offline := "Network error. Check your connection and try again."
	for _, n := range []Notification{
		{Timestamp: t0, Kind: KindNetworkError, Message: offline},
		{Timestamp: t0.Add(500 * time.Millisecond), Kind: KindNetworkError, Message: offline},
		{Timestamp: t0.Add(time.Second), Kind: KindNetworkError, Message: offline},
		{Timestamp: t0.Add(time.Second), Kind: KindServerError, Message: "unavailable"},
		{Timestamp: t0.Add(time.Second), Kind: KindClientError, Message: "invalid amount"},
		{Timestamp: t0.Add(time.Second), Kind: KindClientError, Message: "invalid amount"},
		{Timestamp: t0.Add(2500 * time.Millisecond), Kind: KindNetworkError, Message: offline},
	} {
		d.Emit(context.Background(), n)
	}
	d.Close()

	counts := map[Kind]int{}
	for len(sink.Notifications()) > 0 {
		counts[(<-sink.Notifications()).Kind]++
	}
	if counts[KindNetworkError] != 2 || counts[KindServerError] != 1 || counts[KindClientError] != 2 {
		t.Fatalf("unexpected delivered kinds %v", counts)
	}
	if got := d.Coalesced(); got != 2 {
		t.Fatalf("expected 2 coalesced, got %d", got)
	}
}

func TestDispatcherSessionEndedSurvivesFullBuffer(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Notification{Kind: KindNetworkError, Message: strconv.Itoa(i)})
	}
	d.Emit(context.Background(), Notification{Kind: KindSessionEnded})
	if d.DroppedKind(KindNetworkError) == 0 {
		t.Fatal("expected network errors to be dropped while the sink is blocked")
	}
	if got := d.DroppedKind(KindSessionEnded); got != 0 {
		t.Fatalf("session-ended must not be dropped, got %d", got)
	}

	close(sink.release)
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	ended := 0
	for _, n := range sink.got {
		if n.Kind == KindSessionEnded {
			ended++
		}
		if n.Timestamp.IsZero() {
			t.Fatal("expected emit to stamp the notification")
		}
	}
	if ended != 1 {
		t.Fatalf("expected one session-ended delivery, got %d", ended)
	}
}

func TestJSONWriterSinkOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Notify(context.Background(), Notification{Kind: KindClientError, StatusCode: 422, Message: "invalid amount"})
	s.Notify(context.Background(), Notification{Kind: KindSessionEnded})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first Notification
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Kind != KindClientError || first.StatusCode != 422 {
		t.Fatalf("unexpected notification %+v", first)
	}
}
