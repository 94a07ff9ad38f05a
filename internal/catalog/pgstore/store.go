// Package pgstore loads the menu catalog from PostgreSQL.
//
// It reads the `menu_items` table, one row per item and language:
//
//	CREATE TABLE menu_items (
//	    id          TEXT    NOT NULL,
//	    kind        TEXT    NOT NULL CHECK (kind IN ('option', 'extra')),
//	    lang        TEXT    NOT NULL,
//	    title       TEXT    NOT NULL,
//	    description TEXT    NOT NULL DEFAULT '',
//	    price_cents INTEGER NOT NULL,
//	    position    INTEGER NOT NULL DEFAULT 0,
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (id, lang)
//	);
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/resilience"
)

// Store is a catalog.Source backed by PostgreSQL.
type Store struct {
	db              *sql.DB
	defaultLanguage string
	retry           resilience.RetryConfig
	logger          *slog.Logger
}

// New creates a Store. defaultLanguage is recorded on every loaded catalog.
func New(db *sql.DB, defaultLanguage string) *Store {
	if defaultLanguage == "" {
		defaultLanguage = catalog.DefaultLanguage
	}
	return &Store{
		db:              db,
		defaultLanguage: defaultLanguage,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
		},
		logger: slog.Default().With("component", "catalog-pgstore"),
	}
}

// WithRetry overrides the retry policy used by Load.
func (s *Store) WithRetry(cfg resilience.RetryConfig) *Store {
	s.retry = cfg
	return s
}

// Load reads every row and assembles a catalog. Transient failures are
// retried with exponential backoff.
func (s *Store) Load(ctx context.Context) (*catalog.Catalog, error) {
	var cat *catalog.Catalog
	err := resilience.Retry(ctx, "catalog-load", s.retry, func() error {
		loaded, err := s.load(ctx)
		if err != nil {
			return err
		}
		cat = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog loaded",
		"version", cat.Version,
		"options", len(cat.Options),
		"extras", len(cat.Extras),
		"languages", cat.Languages,
	)
	return cat, nil
}

type row struct {
	id, kind, lang, title, description string
	priceCents, position               int
}

func (s *Store) load(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, lang, title, description, price_cents, position
		 FROM menu_items
		 ORDER BY kind, position, id, lang`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.kind, &r.lang, &r.title, &r.description, &r.priceCents, &r.position); err != nil {
			return nil, fmt.Errorf("scanning menu item row: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu items: %w", err)
	}
	cat, err := s.assemble(all)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("assembling catalog: %w", err))
	}
	return cat, nil
}

func (s *Store) assemble(rows []row) (*catalog.Catalog, error) {
	cat := &catalog.Catalog{DefaultLanguage: s.defaultLanguage}
	items := make(map[string]*catalog.Item)
	kinds := make(map[string]string)
	var order []string
	langs := make(map[string]struct{})

	for _, r := range rows {
		if r.kind != "option" && r.kind != "extra" {
			s.logger.Warn("skipping menu item with unknown kind", "id", r.id, "kind", r.kind)
			continue
		}
		item, ok := items[r.id]
		if !ok {
			item = &catalog.Item{
				ID:          r.id,
				Title:       catalog.Localized{},
				Description: catalog.Localized{},
				PriceCents:  r.priceCents,
			}
			items[r.id] = item
			kinds[r.id] = r.kind
			order = append(order, r.id)
		}
		item.Title[r.lang] = r.title
		if r.description != "" {
			item.Description[r.lang] = r.description
		}
		langs[r.lang] = struct{}{}
	}

	for _, id := range order {
		if kinds[id] == "option" {
			cat.Options = append(cat.Options, *items[id])
		} else {
			cat.Extras = append(cat.Extras, *items[id])
		}
	}
	for l := range langs {
		cat.Languages = append(cat.Languages, l)
	}
	sort.Strings(cat.Languages)
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	cat.Version = catalog.ContentVersion(cat)
	return cat, nil
}
