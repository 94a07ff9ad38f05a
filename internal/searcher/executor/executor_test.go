package executor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	apperrors "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *recordingTracker) Track(e analytics.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingTracker) ofType(t analytics.EventType) []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []analytics.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*SearchResponse
}

func (c *mapCache) GetOrCompute(_ context.Context, key string, compute func() (*SearchResponse, error)) (*SearchResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*SearchResponse)
	}
	if resp, ok := c.entries[key]; ok {
		return resp, true, nil
	}
	resp, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.entries[key] = resp
	return resp, false, nil
}

type switchSource struct {
	mu  sync.Mutex
	cat *catalog.Catalog
	err error
}

func (s *switchSource) Load(context.Context) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat, s.err
}

func (s *switchSource) set(cat *catalog.Catalog, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cat, s.err = cat, err
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *synonym.PersonalStore) {
	t.Helper()
	personal := synonym.NewPersonalStore(nil)
	e := New(catalog.StaticSource{Catalog: catalog.Default()}, synonym.DefaultTable(), personal, opts...)
	require.NoError(t, e.Load(context.Background()))
	return e, personal
}

func TestSearchBeforeLoad(t *testing.T) {
	e := New(catalog.StaticSource{Catalog: catalog.Default()}, nil, nil)
	_, err := e.Search(context.Background(), SearchRequest{Query: "queso"})
	assert.ErrorIs(t, err, apperrors.ErrCatalogUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
}

func TestSearch(t *testing.T) {
	e, _ := newEngine(t, WithLearning(false))

	resp, err := e.Search(context.Background(), SearchRequest{Query: "Chorizo"})
	require.NoError(t, err)
	assert.Equal(t, "es", resp.Lang)
	assert.Equal(t, []string{"chorizo"}, resp.Tokens)
	assert.Equal(t, catalog.Default().Version, resp.CatalogVersion)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "extra-chorizo", resp.Results[0].DocID)
	assert.False(t, resp.Cached)

	resp, err = e.Search(context.Background(), SearchRequest{Query: "chorizo", Lang: "EN"})
	require.NoError(t, err)
	assert.Equal(t, "en", resp.Lang)
	assert.Equal(t, "Extra chorizo", resp.Results[0].Title)
}

func TestSearchUnknownLanguage(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Search(context.Background(), SearchRequest{Query: "queso", Lang: "fr"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownLanguage)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))
}

func TestSearchEmptyQuery(t *testing.T) {
	e, personal := newEngine(t)
	resp, err := e.Search(context.Background(), SearchRequest{Query: "¿?"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, []string{}, resp.Tokens)
	assert.Empty(t, personal.Snapshot())
}

func TestSearchLimit(t *testing.T) {
	e, _ := newEngine(t, WithLearning(false), WithMaxResults(4))

	resp, err := e.Search(context.Background(), SearchRequest{Query: "bebida"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)

	resp, err = e.Search(context.Background(), SearchRequest{Query: "bebida", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 4, "limit is capped by max results")
}

func TestSearchLearnsFromTopResult(t *testing.T) {
	tracker := &recordingTracker{}
	e, personal := newEngine(t, WithTracker(tracker))
	gen := personal.Generation()

	resp, err := e.Search(context.Background(), SearchRequest{Query: "hambre tortilla"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "opcion-3", resp.Results[0].DocID)

	assert.Equal(t, []string{"opcion"}, personal.Lookup("hambre"))
	assert.Equal(t, []string{"opcion"}, personal.Lookup("tortilla"))
	assert.Greater(t, personal.Generation(), gen)

	learned := tracker.ofType(analytics.EventSynonymLearned)
	require.Len(t, learned, 1)
	assert.Equal(t, "opcion", learned[0].Synonym.Lead)
	assert.Equal(t, 2, learned[0].Synonym.Learned)

	// The live index sees the new pair without a rebuild.
	resp, err = e.Search(context.Background(), SearchRequest{Query: "hambre"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestSearchLearningDisabled(t *testing.T) {
	e, personal := newEngine(t, WithLearning(false))
	_, err := e.Search(context.Background(), SearchRequest{Query: "hambre tortilla"})
	require.NoError(t, err)
	assert.Empty(t, personal.Snapshot())
}

type failingBackend struct{}

func (failingBackend) LoadAll(context.Context) ([]synonym.Pair, error) { return nil, nil }
func (failingBackend) Save(context.Context, []synonym.Pair) error {
	return errors.New("read-only")
}

func TestSearchLearningFailureIsSwallowed(t *testing.T) {
	personal := synonym.NewPersonalStore(failingBackend{})
	e := New(catalog.StaticSource{Catalog: catalog.Default()}, synonym.DefaultTable(), personal)
	require.NoError(t, e.Load(context.Background()))

	resp, err := e.Search(context.Background(), SearchRequest{Query: "hambre tortilla"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
	assert.Equal(t, 2, personal.Pending())
}

func TestSearchUsesCache(t *testing.T) {
	rc := &mapCache{}
	tracker := &recordingTracker{}
	e, _ := newEngine(t, WithCache(rc), WithLearning(false), WithTracker(tracker))

	first, err := e.Search(context.Background(), SearchRequest{Query: "Queso"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Search(context.Background(), SearchRequest{Query: "queso!"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "queso!", second.Query)
	assert.Equal(t, first.Results, second.Results)
	assert.False(t, rc.entries[e.cacheKey("es", first.CatalogVersion, 3, "queso")].Cached, "stored entry is not mutated")

	_, err = e.Search(context.Background(), SearchRequest{Query: "   "})
	require.NoError(t, err)
	assert.Len(t, rc.entries, 1, "blank queries bypass the cache")

	searches := tracker.ofType(analytics.EventSearch)
	require.Len(t, searches, 3)
	assert.True(t, searches[1].Search.Cached)
}

func TestCacheKeyFollowsGeneration(t *testing.T) {
	e, personal := newEngine(t)
	before := e.cacheKey("es", "v1", 3, "Hambre")
	assert.Equal(t, before, e.cacheKey("es", "v1", 3, "hambre?"))
	personal.Add("hambre", "opcion")
	assert.NotEqual(t, before, e.cacheKey("es", "v1", 3, "hambre"))
}

func TestReload(t *testing.T) {
	src := &switchSource{cat: catalog.Default()}
	tracker := &recordingTracker{}
	e := New(src, synonym.DefaultTable(), nil, WithTracker(tracker))
	require.NoError(t, e.Load(context.Background()))

	info, err := e.Stats(context.Background(), "es")
	require.NoError(t, err)
	assert.Equal(t, 8, info.Stats.Documents)

	changed, err := e.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	smaller := catalog.Default()
	smaller.Extras = nil
	smaller.Version = ""
	src.set(smaller, nil)
	changed, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	info, err = e.Stats(context.Background(), "es")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Stats.Documents)
	assert.Equal(t, catalog.ContentVersion(smaller), info.CatalogVersion)

	src.set(nil, errors.New("db down"))
	_, err = e.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCatalogUnavailable)
	assert.Equal(t, smaller.Version, e.Catalog().Version, "a failed reload keeps the current catalog")

	assert.Len(t, tracker.ofType(analytics.EventIndexBuild), 2)
}

func TestRebuild(t *testing.T) {
	e, _ := newEngine(t)
	infos, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "es", infos[0].Lang)
	assert.Equal(t, "en", infos[1].Lang)
	for _, info := range infos {
		assert.Equal(t, 8, info.Stats.Documents)
	}

	again, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	assert.False(t, again[0].BuiltAt.Before(infos[0].BuiltAt))
}

func TestRebuildWithoutDeclaredLanguages(t *testing.T) {
	bare := &catalog.Catalog{
		Options: []catalog.Item{{ID: "opcion-1", Title: catalog.Localized{"es": "Opción 1"}, PriceCents: 850}},
		Extras:  []catalog.Item{{ID: "extra-queso", Title: catalog.Localized{"es": "Queso"}, PriceCents: 200}},
	}
	bare.Version = catalog.ContentVersion(bare)
	e := New(catalog.StaticSource{Catalog: bare}, nil, nil)
	require.NoError(t, e.Load(context.Background()))

	infos, err := e.Rebuild(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, catalog.DefaultLanguage, infos[0].Lang)
	assert.Equal(t, 2, infos[0].Stats.Documents)
}

func TestExplain(t *testing.T) {
	e, personal := newEngine(t)
	exp, err := e.Explain(context.Background(), "torilla", "", 0)
	require.NoError(t, err)
	require.Len(t, exp.Terms, 1)
	assert.Equal(t, "tortilla", exp.Terms[0].Mapped)
	assert.Empty(t, personal.Snapshot(), "explain never learns")
}

func TestConcurrentSearches(t *testing.T) {
	e, _ := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lang := "es"
			if i%2 == 0 {
				lang = "en"
			}
			resp, err := e.Search(context.Background(), SearchRequest{Query: "tortilla con queso", Lang: lang})
			assert.NoError(t, err)
			assert.NotEmpty(t, resp.Results)
		}(i)
	}
	wg.Wait()
}

func BenchmarkSearch(b *testing.B) {
	e := New(catalog.StaticSource{Catalog: catalog.Default()}, synonym.DefaultTable(), nil)
	if err := e.Load(context.Background()); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = e.Search(ctx, SearchRequest{Query: "tortilla con huevo"})
		}
	})
}
