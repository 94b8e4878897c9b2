package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/kafka"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	fail   bool
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16)
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track(QueryEvent{Fingerprint: "fp", Commands: i})
	}
	c.Close()
	if got := pub.count(); got != 5 {
		t.Fatalf("published %d events, want 5", got)
	}
	first := pub.events[0]
	if first.Key != "fp" {
		t.Errorf("key = %q, want fingerprint", first.Key)
	}
	if _, err := json.Marshal(first.Value); err != nil {
		t.Errorf("event not JSON serialisable: %v", err)
	}
}

func TestCollectorFlushesFullBatches(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1000)
	c.Start(context.Background())
	defer c.Close()
	for i := 0; i < maxBatch; i++ {
		c.Track(QueryEvent{Commands: i})
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < maxBatch && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.count(); got != maxBatch {
		t.Fatalf("published %d events before close, want %d", got, maxBatch)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 2)
	// Not started: the buffer fills and further events are dropped without
	// blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Track(QueryEvent{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a full buffer")
	}
	c.Start(context.Background())
	c.Close()
	if got := pub.count(); got != 2 {
		t.Errorf("published %d events, want 2", got)
	}
}

func TestCollectorSurvivesPublishFailure(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	c := NewCollector(pub, 4)
	c.Start(context.Background())
	c.Track(QueryEvent{})
	c.Close()
	if got := pub.count(); got != 0 {
		t.Errorf("published %d events, want 0", got)
	}
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16)
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 3; i++ {
		c.Track(QueryEvent{})
	}
	c.Start(ctx)
	cancel()
	c.Close()
	if got := pub.count(); got != 3 {
		t.Errorf("published %d events, want 3", got)
	}
}
