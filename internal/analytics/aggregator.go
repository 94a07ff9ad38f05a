package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// AggregatedStats is the read model served by the analytics endpoint.
type AggregatedStats struct {
	Since             time.Time        `json:"since"`
	TotalSearches     int64            `json:"total_searches"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ChatMessages      int64            `json:"chat_messages"`
	IndexBuilds       int64            `json:"index_builds"`
	SynonymsLearned   int64            `json:"synonyms_learned"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      float64          `json:"p50_latency_ms"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	Intents           map[string]int64 `json:"intents"`
	Languages         map[string]int64 `json:"languages"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running statistics. It is safe for
// concurrent use.
type Aggregator struct {
	mu                sync.RWMutex
	stats             AggregatedStats
	latencies         []float64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	now               func() time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	a := &Aggregator{
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
	a.stats.Since = a.now().UTC()
	a.stats.Intents = make(map[string]int64)
	a.stats.Languages = make(map[string]int64)
	return a
}

// HandleEvent adapts the aggregator to a Kafka consumer.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			return err
		}
		return agg.Record(event)
	}
}

// PublishBatch records events in-process. It lets a single-node deployment
// use the aggregator as the collector's publisher without Kafka.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, ev := range events {
		event, ok := ev.Value.(Event)
		if !ok {
			return fmt.Errorf("unexpected analytics payload %T", ev.Value)
		}
		if err := a.Record(event); err != nil {
			a.logger.Warn("skipping analytics event", "error", err)
		}
	}
	return nil
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(event Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Type {
	case EventSearch:
		if event.Search == nil {
			return fmt.Errorf("search event %s without payload", event.ID)
		}
		a.recordSearch(event.Search)
	case EventChat:
		if event.Chat == nil {
			return fmt.Errorf("chat event %s without payload", event.ID)
		}
		a.stats.ChatMessages++
		a.stats.Intents[event.Chat.Intent]++
	case EventIndexBuild:
		a.stats.IndexBuilds++
	case EventSynonymLearned:
		if event.Synonym != nil {
			a.stats.SynonymsLearned += int64(event.Synonym.Learned)
		}
	default:
		return fmt.Errorf("unknown analytics event type %q", event.Type)
	}
	return nil
}

func (a *Aggregator) recordSearch(ev *SearchEvent) {
	a.stats.TotalSearches++
	if ev.Cached {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if ev.Lang != "" {
		a.stats.Languages[ev.Lang]++
	}
	query := ev.Normalized
	if query == "" {
		query = ev.Query
	}
	if query != "" {
		a.queryCounts[query]++
		if ev.Results == 0 {
			a.stats.ZeroResultCount++
			a.zeroResultQueries[query]++
		}
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ev.LatencyMs)
	} else {
		a.latencies[a.next] = ev.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Stats returns a copy of the current statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.Intents = copyCounts(a.stats.Intents)
	stats.Languages = copyCounts(a.stats.Languages)
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := a.now().Sub(a.stats.Since).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so equal counts list deterministically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
