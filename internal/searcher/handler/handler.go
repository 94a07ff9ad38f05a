// Package handler exposes the search engine and the chat router over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/intent"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/metrics"
)

const maxChatBodyBytes = 4 << 10

// Engine is the part of *executor.Engine the handlers use.
type Engine interface {
	Search(ctx context.Context, req executor.SearchRequest) (*executor.SearchResponse, error)
	Explain(ctx context.Context, query, lang string, limit int) (ranker.Explanation, error)
	ResolveLanguage(lang string) (string, error)
	Rebuild(ctx context.Context) ([]executor.IndexInfo, error)
	Stats(ctx context.Context, lang string) (executor.IndexInfo, error)
	Catalog() *catalog.Catalog
	Table() synonym.Table
	Personal() synonym.Store
}

type Handler struct {
	engine     Engine
	router     *intent.Router
	cache      *cache.QueryCache
	tracker    executor.Tracker
	metrics    *metrics.Metrics
	maxResults int
	logger     *slog.Logger
}

// New creates the handler set. queryCache, tracker and m may be nil.
func New(engine Engine, router *intent.Router, queryCache *cache.QueryCache, tracker executor.Tracker, m *metrics.Metrics, maxResults int) *Handler {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Handler{
		engine:     engine,
		router:     router,
		cache:      queryCache,
		tracker:    tracker,
		metrics:    m,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/chat", h.Chat)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/synonyms", h.Synonyms)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search handles GET /api/v1/search?q=&lang=&limit=&explain=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	query := params.Get("q")
	lang := params.Get("lang")

	limit := 0
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, h.maxResults)
	}

	if explain, _ := strconv.ParseBool(params.Get("explain")); explain {
		exp, err := h.engine.Explain(r.Context(), query, lang, limit)
		if err != nil {
			h.writeAppError(r.Context(), w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, exp)
		return
	}

	resp, err := h.engine.Search(r.Context(), executor.SearchRequest{Query: query, Lang: lang, Limit: limit})
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	logger.FromContext(r.Context()).Info("search completed",
		"component", "search-handler",
		"lang", resp.Lang,
		"results", len(resp.Results),
		"cached", resp.Cached,
		"took_ms", resp.TookMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
	Lang    string `json:"lang"`
}

type chatResponse struct {
	Lang string `json:"lang"`
	intent.Reply
}

// Chat handles POST /api/v1/chat with {"message": "...", "lang": "es"}.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	lang, err := h.engine.ResolveLanguage(req.Lang)
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	reply, err := h.router.Route(r.Context(), intent.NewMessage(req.Message, lang))
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IntentsTotal.WithLabelValues(reply.Intent).Inc()
	}
	if h.tracker != nil {
		h.tracker.Track(analytics.Event{
			Type:      analytics.EventChat,
			RequestID: logger.RequestID(r.Context()),
			Chat: &analytics.ChatEvent{
				Lang:      lang,
				Intent:    reply.Intent,
				Results:   len(reply.Results),
				LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
			},
		})
	}
	h.writeJSON(w, http.StatusOK, chatResponse{Lang: lang, Reply: reply})
}

// Rebuild handles POST /api/v1/index/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	infos, err := h.engine.Rebuild(r.Context())
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"indexes": infos})
}

// IndexStats handles GET /api/v1/index/stats[?lang=]. Without lang it
// reports every catalog language.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	langs := []string{r.URL.Query().Get("lang")}
	if langs[0] == "" {
		if cat := h.engine.Catalog(); cat != nil && len(cat.Languages) > 0 {
			langs = cat.Languages
		}
	}
	infos := make([]executor.IndexInfo, 0, len(langs))
	for _, lang := range langs {
		info, err := h.engine.Stats(r.Context(), lang)
		if err != nil {
			h.writeAppError(r.Context(), w, err)
			return
		}
		infos = append(infos, info)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"indexes": infos})
}

// Synonyms handles GET /api/v1/synonyms[?token=].
func (h *Handler) Synonyms(w http.ResponseWriter, r *http.Request) {
	personal := map[string][]string{}
	var generation uint64
	if store := h.engine.Personal(); store != nil {
		personal = store.Snapshot()
		generation = store.Generation()
	}
	static := map[string][]string(h.engine.Table())
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		static = pick(static, token)
		personal = pick(personal, token)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"static":     static,
		"personal":   personal,
		"generation": generation,
	})
}

func pick(table map[string][]string, token string) map[string][]string {
	out := map[string][]string{}
	if values, ok := table[token]; ok {
		out[token] = values
	}
	return out
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", "component", "search-handler", "error", err)
	}
	h.writeError(w, status, apperrors.Message(err))
}
