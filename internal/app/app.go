// Package app assembles the search engine from configuration. It is shared
// by the HTTP service and the menuctl CLI so both resolve catalog sources
// and synonym stores the same way.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/redis"
	_ "github.com/mattn/go-sqlite3"
)

// CatalogSource picks the configured catalog source. pg is only required
// for the postgres source.
func CatalogSource(cfg config.CatalogConfig, searchCfg config.SearchConfig, pg *postgres.Client) (catalog.Source, error) {
	switch cfg.Source {
	case "", "embedded":
		return catalog.StaticSource{Catalog: catalog.Default()}, nil
	case "file":
		return catalog.FileSource{Path: cfg.Path}, nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("catalog source postgres needs a database connection")
		}
		return pgstore.New(pg.DB, searchCfg.DefaultLanguage), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// SynonymTable returns the built-in table merged with the optional YAML
// table at cfg.TablePath.
func SynonymTable(cfg config.SynonymsConfig) (synonym.Table, error) {
	table := synonym.DefaultTable()
	if cfg.TablePath == "" {
		return table, nil
	}
	extra, err := synonym.LoadTable(cfg.TablePath)
	if err != nil {
		return nil, err
	}
	return table.Merge(extra), nil
}

// SynonymStore opens the configured personal synonym store and loads what
// was learned before. The returned close func releases the backend.
func SynonymStore(ctx context.Context, cfg config.SynonymsConfig, rdb *pkgredis.Client) (*synonym.PersonalStore, func() error, error) {
	noop := func() error { return nil }
	var (
		backend synonym.Backend
		closeFn = noop
	)
	switch cfg.Store {
	case "", "memory":
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("creating synonym cache directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("opening synonym cache %s: %w", cfg.SQLitePath, err)
		}
		// SQLite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
		b, err := synonym.NewSQLBackend(ctx, db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		backend, closeFn = b, db.Close
	case "redis":
		if rdb == nil {
			return nil, noop, fmt.Errorf("synonym store redis needs a redis connection")
		}
		backend = synonym.NewRedisBackend(rdb)
	default:
		return nil, noop, fmt.Errorf("unknown synonym store %q", cfg.Store)
	}

	store := synonym.NewPersonalStore(backend)
	if err := store.Load(ctx); err != nil {
		closeFn()
		return nil, noop, err
	}
	slog.Info("personal synonyms loaded", "store", cfg.Store, "tokens", len(store.Snapshot()))
	return store, closeFn, nil
}

// RankerOptions maps the search section onto scoring options.
func RankerOptions(cfg config.SearchConfig) ranker.Options {
	return ranker.Options{
		K1:          cfg.K1,
		B:           cfg.B,
		TopK:        cfg.TopK,
		Dampening:   cfg.Dampening,
		MaxDistance: cfg.MaxEditDistance,
	}
}

// EngineOptions maps the search section onto engine options; extra options
// are appended.
func EngineOptions(cfg config.SearchConfig, extra ...executor.Option) []executor.Option {
	opts := []executor.Option{
		executor.WithRankerOptions(RankerOptions(cfg)),
		executor.WithMaxResults(cfg.MaxResults),
		executor.WithLearning(cfg.Learning),
		executor.WithDefaultLanguage(cfg.DefaultLanguage),
	}
	return append(opts, extra...)
}
