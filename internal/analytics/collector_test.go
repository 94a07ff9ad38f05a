package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *capturePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *capturePublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.Event
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(pub, 10, 2, time.Hour)
	c.Start(context.Background())
	defer c.Close()

	c.Track(Event{Type: EventChat, Chat: &ChatEvent{Intent: "greeting"}})
	c.Track(Event{Type: EventChat, Chat: &ChatEvent{Intent: "search"}})

	require.Eventually(t, func() bool { return len(pub.events()) == 2 }, time.Second, 5*time.Millisecond)
	ev := pub.events()[0]
	assert.Equal(t, "chat", ev.Key)
	tracked := ev.Value.(Event)
	assert.NotEmpty(t, tracked.ID)
	assert.False(t, tracked.Timestamp.IsZero())
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(pub, 10, 100, 10*time.Millisecond)
	c.Start(context.Background())
	defer c.Close()

	c.Track(Event{Type: EventIndexBuild, Index: &IndexEvent{Lang: "es"}})
	require.Eventually(t, func() bool { return len(pub.events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), c.Published())
}

func TestCollectorDrainsOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(pub, 10, 100, time.Hour)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(Event{Type: EventChat, Chat: &ChatEvent{}})
	}
	c.Close()
	assert.Len(t, pub.events(), 5)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&capturePublisher{}, 2, 100, time.Hour)
	for i := 0; i < 5; i++ {
		c.Track(Event{Type: EventChat, Chat: &ChatEvent{}})
	}
	assert.Equal(t, int64(3), c.Dropped())
	c.Close()
}

func TestCollectorPublishErrorsAreNotCounted(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 10, 1, time.Hour)
	c.Start(context.Background())
	c.Track(Event{Type: EventChat, Chat: &ChatEvent{}})
	c.Close()
	assert.Zero(t, c.Published())
}

func TestCollectorFeedsAggregator(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(agg, 10, 100, time.Hour)
	c.Start(context.Background())
	c.Track(searchEvent("queso", 1, 0.5, false))
	c.Close()
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}
