// Package analytics records what users search for and ask the chatbot. The
// search engine emits events through a Collector which batches them onto
// Kafka; an Aggregator consumes them and keeps running statistics that are
// served over HTTP and periodically snapshotted to PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventChat           EventType = "chat"
	EventIndexBuild     EventType = "index_build"
	EventSynonymLearned EventType = "synonym_learned"
)

// Event is the envelope written to Kafka. Exactly one payload field is set,
// matching Type.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	Search  *SearchEvent  `json:"search,omitempty"`
	Chat    *ChatEvent    `json:"chat,omitempty"`
	Index   *IndexEvent   `json:"index,omitempty"`
	Synonym *SynonymEvent `json:"synonym,omitempty"`
}

type SearchEvent struct {
	Query      string  `json:"query"`
	Normalized string  `json:"normalized"`
	Lang       string  `json:"lang"`
	Results    int     `json:"results"`
	TopDocID   string  `json:"top_doc_id,omitempty"`
	TopScore   float64 `json:"top_score,omitempty"`
	LatencyMs  float64 `json:"latency_ms"`
	Cached     bool    `json:"cached"`
}

type ChatEvent struct {
	Lang      string  `json:"lang"`
	Intent    string  `json:"intent"`
	Results   int     `json:"results"`
	LatencyMs float64 `json:"latency_ms"`
}

type IndexEvent struct {
	Lang           string  `json:"lang"`
	CatalogVersion string  `json:"catalog_version"`
	Trigger        string  `json:"trigger"`
	Documents      int     `json:"documents"`
	Terms          int     `json:"terms"`
	Skipped        int     `json:"skipped"`
	DurationMs     float64 `json:"duration_ms"`
}

type SynonymEvent struct {
	Tokens  []string `json:"tokens"`
	Lead    string   `json:"lead"`
	Learned int      `json:"learned"`
}
