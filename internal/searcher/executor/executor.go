// Package executor owns the live search state of the service: the current
// catalog, one immutable index snapshot per language, the synonym tables
// and the learning step that runs after each scored query.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Build triggers, used in logs, metrics and analytics.
const (
	TriggerLazy   = "lazy"
	TriggerManual = "manual"
	TriggerReload = "reload"
)

// SearchRequest is one query against one language.
type SearchRequest struct {
	Query string
	Lang  string
	// Limit overrides the configured top-K when positive.
	Limit int
}

// SearchResponse is what the HTTP and CLI layers render. It is also the
// value stored in the result cache.
type SearchResponse struct {
	Query          string          `json:"query"`
	Lang           string          `json:"lang"`
	Tokens         []string        `json:"tokens"`
	Results        []ranker.Result `json:"results"`
	CatalogVersion string          `json:"catalog_version"`
	Cached         bool            `json:"cached"`
	TookMs         float64         `json:"took_ms"`
}

// ResultCache stores search responses by key. Implemented by
// internal/searcher/cache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (*SearchResponse, error)) (*SearchResponse, bool, error)
}

// Tracker receives analytics events. Implemented by analytics.Collector.
type Tracker interface {
	Track(event analytics.Event)
}

// IndexInfo describes a live snapshot.
type IndexInfo struct {
	Lang           string      `json:"lang"`
	CatalogVersion string      `json:"catalog_version"`
	BuiltAt        time.Time   `json:"built_at"`
	BuildMs        float64     `json:"build_ms"`
	Stats          index.Stats `json:"stats"`
}

type snapshot struct {
	info IndexInfo
	idx  *index.Index
}

// state is replaced wholesale, never mutated, so readers need no lock.
type state struct {
	catalog *catalog.Catalog
	indexes map[string]*snapshot
}

// Engine serves searches over the current catalog.
type Engine struct {
	source      catalog.Source
	table       synonym.Table
	personal    synonym.Store
	opts        ranker.Options
	maxResults  int
	learning    bool
	defaultLang string

	state atomic.Pointer[state]
	group singleflight.Group

	cache   ResultCache
	tracker Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithRankerOptions(opts ranker.Options) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithMaxResults caps SearchRequest.Limit.
func WithMaxResults(n int) Option {
	return func(e *Engine) { e.maxResults = n }
}

// WithLearning toggles personal synonym learning.
func WithLearning(enabled bool) Option {
	return func(e *Engine) { e.learning = enabled }
}

func WithDefaultLanguage(lang string) Option {
	return func(e *Engine) { e.defaultLang = lang }
}

func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. Load must be called before the first search.
// personal may be nil, in which case nothing is learned.
func New(source catalog.Source, table synonym.Table, personal synonym.Store, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		table:       table,
		personal:    personal,
		opts:        ranker.DefaultOptions(),
		maxResults:  10,
		learning:    true,
		defaultLang: catalog.DefaultLanguage,
		logger:      slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the catalog for the first time.
func (e *Engine) Load(ctx context.Context) error {
	_, err := e.Reload(ctx)
	return err
}

// Reload fetches the catalog and, when its version changed, swaps it in and
// drops every index snapshot. It reports whether the catalog changed.
func (e *Engine) Reload(ctx context.Context) (bool, error) {
	cat, err := e.source.Load(ctx)
	if err != nil {
		e.countReload("error")
		return false, apperrors.Newf(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable,
			"loading catalog: %v", err)
	}
	if cat == nil {
		e.countReload("error")
		return false, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog source returned nothing")
	}
	if cat.Version == "" {
		cat.Version = catalog.ContentVersion(cat)
	}
	if cur := e.state.Load(); cur != nil && cur.catalog.Version == cat.Version {
		e.countReload("unchanged")
		return false, nil
	}
	e.state.Store(&state{catalog: cat, indexes: map[string]*snapshot{}})
	e.countReload("changed")
	e.logger.Info("catalog swapped",
		"version", cat.Version,
		"options", len(cat.Options),
		"extras", len(cat.Extras),
		"languages", cat.Languages,
	)
	return true, nil
}

// RunReloader reloads the catalog every interval until ctx is done.
func (e *Engine) RunReloader(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := e.Reload(ctx)
			if err != nil {
				e.logger.Warn("catalog reload failed, keeping current catalog", "error", err)
				continue
			}
			if changed {
				e.warm(ctx)
			}
		}
	}
}

func (e *Engine) warm(ctx context.Context) {
	cur := e.state.Load()
	if cur == nil {
		return
	}
	for _, lang := range cur.catalog.Languages {
		if _, err := e.snapshot(ctx, lang, TriggerReload); err != nil {
			e.logger.Warn("index warm-up failed", "lang", lang, "error", err)
		}
	}
}

// Catalog returns the current catalog or nil before Load.
func (e *Engine) Catalog() *catalog.Catalog {
	cur := e.state.Load()
	if cur == nil {
		return nil
	}
	return cur.catalog
}

// Table returns the static synonym table.
func (e *Engine) Table() synonym.Table {
	return e.table
}

// Personal returns the learned synonym store; it may be nil.
func (e *Engine) Personal() synonym.Store {
	return e.personal
}

// ResolveLanguage maps "" to the default language and rejects languages the
// catalog does not carry.
func (e *Engine) ResolveLanguage(lang string) (string, error) {
	cur := e.state.Load()
	if cur == nil {
		return "", apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog not loaded")
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = e.defaultLang
	}
	if !cur.catalog.SupportsLanguage(lang) {
		return "", apperrors.Newf(apperrors.ErrUnknownLanguage, http.StatusBadRequest, "unsupported language %q", lang)
	}
	return lang, nil
}

// Index returns the live index for lang, building it on first use.
func (e *Engine) Index(ctx context.Context, lang string) (*index.Index, error) {
	lang, err := e.ResolveLanguage(lang)
	if err != nil {
		return nil, err
	}
	snap, err := e.snapshot(ctx, lang, TriggerLazy)
	if err != nil {
		return nil, err
	}
	return snap.idx, nil
}

// snapshot returns the cached snapshot for lang or builds one. Concurrent
// callers for the same language and catalog version share one build.
func (e *Engine) snapshot(ctx context.Context, lang, trigger string) (*snapshot, error) {
	cur := e.state.Load()
	if cur == nil {
		return nil, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog not loaded")
	}
	if snap, ok := cur.indexes[lang]; ok && trigger != TriggerManual {
		return snap, nil
	}
	key := trigger + ":" + lang + ":" + cur.catalog.Version
	v, err, _ := e.group.Do(key, func() (any, error) {
		snap := e.build(ctx, cur.catalog, lang, trigger)
		e.install(snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

func (e *Engine) build(ctx context.Context, cat *catalog.Catalog, lang, trigger string) *snapshot {
	start := time.Now()
	idx := index.Build(catalog.BuildCorpus(cat, lang), e.personal)
	took := time.Since(start)
	snap := &snapshot{
		idx: idx,
		info: IndexInfo{
			Lang:           lang,
			CatalogVersion: cat.Version,
			BuiltAt:        time.Now().UTC(),
			BuildMs:        float64(took.Microseconds()) / 1000,
			Stats:          idx.Stats(),
		},
	}
	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues(lang, trigger).Inc()
		e.metrics.IndexBuildDuration.Observe(took.Seconds())
		e.metrics.IndexDocuments.WithLabelValues(lang).Set(float64(snap.info.Stats.Documents))
		e.metrics.IndexTerms.WithLabelValues(lang).Set(float64(snap.info.Stats.Terms))
	}
	e.track(ctx, analytics.Event{
		Type: analytics.EventIndexBuild,
		Index: &analytics.IndexEvent{
			Lang:           lang,
			CatalogVersion: cat.Version,
			Trigger:        trigger,
			Documents:      snap.info.Stats.Documents,
			Terms:          snap.info.Stats.Terms,
			Skipped:        snap.info.Stats.Skipped,
			DurationMs:     snap.info.BuildMs,
		},
	})
	logger.FromContext(ctx).Info("index built",
		"component", "search-engine",
		"lang", lang,
		"trigger", trigger,
		"catalog_version", cat.Version,
		"documents", snap.info.Stats.Documents,
		"terms", snap.info.Stats.Terms,
		"took", took,
	)
	return snap
}

// install publishes snap unless the catalog moved on while it was built.
func (e *Engine) install(snap *snapshot) {
	for {
		cur := e.state.Load()
		if cur == nil || cur.catalog.Version != snap.info.CatalogVersion {
			return
		}
		next := &state{
			catalog: cur.catalog,
			indexes: make(map[string]*snapshot, len(cur.indexes)+1),
		}
		for k, v := range cur.indexes {
			next.indexes[k] = v
		}
		next.indexes[snap.info.Lang] = snap
		if e.state.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Rebuild rebuilds the index of every catalog language and swaps each in.
func (e *Engine) Rebuild(ctx context.Context) ([]IndexInfo, error) {
	cur := e.state.Load()
	if cur == nil {
		return nil, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog not loaded")
	}
	langs := cur.catalog.Languages
	if len(langs) == 0 {
		langs = []string{cur.catalog.Fallback()}
	}
	infos := make([]IndexInfo, 0, len(langs))
	for _, lang := range langs {
		snap, err := e.snapshot(ctx, lang, TriggerManual)
		if err != nil {
			return infos, fmt.Errorf("rebuilding %s index: %w", lang, err)
		}
		infos = append(infos, snap.info)
	}
	return infos, nil
}

// Stats describes the live index for lang, building it if needed.
func (e *Engine) Stats(ctx context.Context, lang string) (IndexInfo, error) {
	lang, err := e.ResolveLanguage(lang)
	if err != nil {
		return IndexInfo{}, err
	}
	snap, err := e.snapshot(ctx, lang, TriggerLazy)
	if err != nil {
		return IndexInfo{}, err
	}
	return snap.info, nil
}

// Search scores req.Query against the index for req.Lang. On a fresh
// computation the learning step runs after scoring; its failures are
// logged and never surface to the caller.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	lang, err := e.ResolveLanguage(req.Lang)
	if err != nil {
		return nil, err
	}
	snap, err := e.snapshot(ctx, lang, TriggerLazy)
	if err != nil {
		return nil, err
	}
	opts := e.opts
	if req.Limit > 0 {
		opts.TopK = min(req.Limit, e.maxResults)
	}

	compute := func() (*SearchResponse, error) {
		exp := ranker.Explain(req.Query, snap.idx, e.table, opts)
		resp := &SearchResponse{
			Query:          req.Query,
			Lang:           lang,
			Tokens:         exp.Tokens,
			Results:        exp.Results,
			CatalogVersion: snap.info.CatalogVersion,
		}
		if resp.Tokens == nil {
			resp.Tokens = []string{}
		}
		e.learn(ctx, resp)
		return resp, nil
	}

	var (
		resp   *SearchResponse
		cached bool
	)
	if e.cache != nil && strings.TrimSpace(req.Query) != "" {
		resp, cached, err = e.cache.GetOrCompute(ctx, e.cacheKey(lang, snap.info.CatalogVersion, opts.TopK, req.Query), compute)
		if err != nil {
			return nil, err
		}
		// The cached value may be shared; hand out a copy.
		clone := *resp
		resp = &clone
		resp.Query = req.Query
		resp.Cached = cached
	} else {
		resp, _ = compute()
	}
	took := time.Since(start)
	resp.TookMs = float64(took.Microseconds()) / 1000

	e.observeSearch(ctx, resp, took)
	return resp, nil
}

// Explain is Search without caching or learning, returning the full
// scoring trace.
func (e *Engine) Explain(ctx context.Context, query, lang string, limit int) (ranker.Explanation, error) {
	lang, err := e.ResolveLanguage(lang)
	if err != nil {
		return ranker.Explanation{}, err
	}
	snap, err := e.snapshot(ctx, lang, TriggerLazy)
	if err != nil {
		return ranker.Explanation{}, err
	}
	opts := e.opts
	if limit > 0 {
		opts.TopK = min(limit, e.maxResults)
	}
	return ranker.Explain(query, snap.idx, e.table, opts), nil
}

func (e *Engine) learn(ctx context.Context, resp *SearchResponse) {
	if !e.learning || e.personal == nil || len(resp.Results) == 0 {
		return
	}
	top := resp.Results[0]
	learned, err := synonym.Learn(ctx, e.personal, resp.Tokens, top.Title)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SynonymPersistErrorTotal.Inc()
		}
		logger.FromContext(ctx).Warn("persisting learned synonyms failed",
			"component", "search-engine",
			"error", err,
		)
	}
	if learned == 0 {
		return
	}
	if e.metrics != nil {
		e.metrics.SynonymsLearnedTotal.Add(float64(learned))
	}
	e.track(ctx, analytics.Event{
		Type: analytics.EventSynonymLearned,
		Synonym: &analytics.SynonymEvent{
			Tokens:  resp.Tokens,
			Lead:    tokenizer.Lead(top.Title),
			Learned: learned,
		},
	})
}

func (e *Engine) observeSearch(ctx context.Context, resp *SearchResponse, took time.Duration) {
	outcome := "hit"
	switch {
	case len(resp.Tokens) == 0:
		outcome = "empty_query"
	case len(resp.Results) == 0:
		outcome = "zero_result"
	}
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(resp.Lang, outcome).Inc()
		status := "bypass"
		if e.cache != nil {
			status = "miss"
			if resp.Cached {
				status = "hit"
			}
		}
		e.metrics.SearchLatency.WithLabelValues(status).Observe(took.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(resp.Results)))
	}
	ev := &analytics.SearchEvent{
		Query:      resp.Query,
		Normalized: strings.Join(resp.Tokens, " "),
		Lang:       resp.Lang,
		Results:    len(resp.Results),
		LatencyMs:  resp.TookMs,
		Cached:     resp.Cached,
	}
	if len(resp.Results) > 0 {
		ev.TopDocID = resp.Results[0].DocID
		ev.TopScore = resp.Results[0].Score
	}
	e.track(ctx, analytics.Event{Type: analytics.EventSearch, Search: ev})
	logger.FromContext(ctx).Debug("search executed",
		"component", "search-engine",
		"lang", resp.Lang,
		"tokens", resp.Tokens,
		"results", len(resp.Results),
		"cached", resp.Cached,
		"took", took,
	)
}

func (e *Engine) track(ctx context.Context, event analytics.Event) {
	if e.tracker == nil {
		return
	}
	event.RequestID = logger.RequestID(ctx)
	e.tracker.Track(event)
}

// cacheKey changes whenever anything that affects scoring changes: the
// catalog version, the learned-synonym generation and the result bound.
func (e *Engine) cacheKey(lang, version string, topK int, query string) string {
	var generation uint64
	if e.personal != nil {
		generation = e.personal.Generation()
	}
	return fmt.Sprintf("%s|%s|%d|%d|%s", lang, version, generation, topK, tokenizer.Normalize(query))
}

func (e *Engine) countReload(status string) {
	if e.metrics != nil {
		e.metrics.CatalogReloadsTotal.WithLabelValues(status).Inc()
	}
}
