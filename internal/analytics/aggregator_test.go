package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchEvent(normalized string, results int, latency float64, cached bool) Event {
	return Event{Type: EventSearch, Search: &SearchEvent{
		Query:      normalized,
		Normalized: normalized,
		Lang:       "es",
		Results:    results,
		LatencyMs:  latency,
		Cached:     cached,
	}}
}

func TestAggregatorRecord(t *testing.T) {
	agg := NewAggregator()

	require.NoError(t, agg.Record(searchEvent("tortilla", 3, 1, false)))
	require.NoError(t, agg.Record(searchEvent("tortilla", 3, 2, true)))
	require.NoError(t, agg.Record(searchEvent("sushi", 0, 3, false)))
	require.NoError(t, agg.Record(Event{Type: EventChat, Chat: &ChatEvent{Intent: "greeting"}}))
	require.NoError(t, agg.Record(Event{Type: EventIndexBuild, Index: &IndexEvent{Lang: "es"}}))
	require.NoError(t, agg.Record(Event{Type: EventSynonymLearned, Synonym: &SynonymEvent{Learned: 2}}))

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ChatMessages)
	assert.Equal(t, int64(1), stats.IndexBuilds)
	assert.Equal(t, int64(2), stats.SynonymsLearned)
	assert.Equal(t, map[string]int64{"greeting": 1}, stats.Intents)
	assert.Equal(t, map[string]int64{"es": 3}, stats.Languages)
	assert.Equal(t, []QueryCount{{"tortilla", 2}, {"sushi", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"sushi", 1}}, stats.ZeroResultQueries)
	assert.InDelta(t, 2.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, 2.0, stats.P50LatencyMs)
	assert.Equal(t, 3.0, stats.P99LatencyMs)
}

func TestAggregatorRejectsBadEvents(t *testing.T) {
	agg := NewAggregator()
	assert.Error(t, agg.Record(Event{Type: "unknown"}))
	assert.Error(t, agg.Record(Event{Type: EventSearch}))
	assert.Error(t, agg.Record(Event{Type: EventChat}))
	assert.Zero(t, agg.Stats().TotalSearches)
}

func TestAggregatorStatsIsACopy(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Record(Event{Type: EventChat, Chat: &ChatEvent{Intent: "search"}}))
	stats := agg.Stats()
	stats.Intents["search"] = 100
	assert.Equal(t, int64(1), agg.Stats().Intents["search"])
}

func TestAggregatorQueriesPerMinute(t *testing.T) {
	agg := NewAggregator()
	since := agg.Stats().Since
	agg.now = func() time.Time { return since.Add(2 * time.Minute) }
	for i := 0; i < 4; i++ {
		require.NoError(t, agg.Record(searchEvent("queso", 1, 1, false)))
	}
	assert.InDelta(t, 2.0, agg.Stats().QueriesPerMinute, 1e-9)
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		require.NoError(t, agg.Record(searchEvent("", 1, float64(i), false)))
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Empty(t, agg.Stats().TopQueries, "blank queries are not counted")
}

func TestHandleEventDecodesKafkaMessages(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	value, err := json.Marshal(searchEvent("huevo", 2, 1, false))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte("search"), value))
	assert.Error(t, handle(context.Background(), nil, []byte("{bad")))
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

func TestAggregatorAsPublisher(t *testing.T) {
	agg := NewAggregator()
	err := agg.PublishBatch(context.Background(), []kafka.Event{
		{Key: "search", Value: searchEvent("pan", 1, 1, false)},
		{Key: "bogus", Value: Event{Type: "bogus"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)

	err = agg.PublishBatch(context.Background(), []kafka.Event{{Key: "x", Value: "not an event"}})
	assert.Error(t, err)
}
