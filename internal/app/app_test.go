package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSource(t *testing.T) {
	src, err := CatalogSource(config.CatalogConfig{Source: "embedded"}, config.SearchConfig{}, nil)
	require.NoError(t, err)
	cat, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Options, 4)

	src, err = CatalogSource(config.CatalogConfig{Source: "file", Path: "menu.yaml"}, config.SearchConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.FileSource{Path: "menu.yaml"}, src)

	_, err = CatalogSource(config.CatalogConfig{Source: "postgres"}, config.SearchConfig{}, nil)
	assert.Error(t, err)
	_, err = CatalogSource(config.CatalogConfig{Source: "ftp"}, config.SearchConfig{}, nil)
	assert.Error(t, err)
}

func TestSynonymTable(t *testing.T) {
	table, err := SynonymTable(config.SynonymsConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, table.Lookup("bebida"))

	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sopa: [caldo]\n"), 0o644))
	table, err = SynonymTable(config.SynonymsConfig{TablePath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"caldo"}, table.Lookup("sopa"))
	assert.NotEmpty(t, table.Lookup("bebida"))

	_, err = SynonymTable(config.SynonymsConfig{TablePath: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestSQLiteSynonymStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := config.SynonymsConfig{Store: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "data", "synonyms.db")}

	store, closeFn, err := SynonymStore(ctx, cfg, nil)
	require.NoError(t, err)
	store.Add("hambre", "opcion")
	require.NoError(t, store.Persist(ctx))
	require.NoError(t, closeFn())

	reopened, closeFn, err := SynonymStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, []string{"opcion"}, reopened.Lookup("hambre"))
}

func TestSynonymStoreErrors(t *testing.T) {
	_, _, err := SynonymStore(context.Background(), config.SynonymsConfig{Store: "redis"}, nil)
	assert.Error(t, err)
	_, _, err = SynonymStore(context.Background(), config.SynonymsConfig{Store: "etcd"}, nil)
	assert.Error(t, err)

	store, closeFn, err := SynonymStore(context.Background(), config.SynonymsConfig{Store: "memory"}, nil)
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.Empty(t, store.Snapshot())
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default().Search
	cfg.Learning = false
	cfg.DefaultLanguage = "en"

	personal, closeFn, err := SynonymStore(context.Background(), config.SynonymsConfig{}, nil)
	require.NoError(t, err)
	defer closeFn()

	engine := executor.New(catalog.StaticSource{Catalog: catalog.Default()}, nil, personal, EngineOptions(cfg)...)
	require.NoError(t, engine.Load(context.Background()))

	lang, err := engine.ResolveLanguage("")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	_, err = engine.Search(context.Background(), executor.SearchRequest{Query: "hungry tortilla"})
	require.NoError(t, err)
	assert.Empty(t, personal.Snapshot(), "learning follows the config")

	opts := RankerOptions(cfg)
	assert.Equal(t, cfg.K1, opts.K1)
	assert.Equal(t, cfg.MaxEditDistance, opts.MaxDistance)
}
