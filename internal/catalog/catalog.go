// Package catalog holds the restaurant menu (options and extras with
// localized titles and descriptions) and converts it into the document
// corpus the search index is built from.
package catalog

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when an item has no translation for the
// requested language.
const DefaultLanguage = "es"

//go:embed default.yaml
var defaultCatalogYAML []byte

// Localized maps a language code to text.
type Localized map[string]string

// Get returns the text for lang, falling back to fallback and then to any
// translation in a stable order.
func (l Localized) Get(lang, fallback string) string {
	if v, ok := l[lang]; ok && v != "" {
		return v
	}
	if v, ok := l[fallback]; ok && v != "" {
		return v
	}
	langs := make([]string, 0, len(l))
	for k := range l {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	for _, k := range langs {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// Item is a menu option or extra.
type Item struct {
	ID          string    `yaml:"id" json:"id"`
	Title       Localized `yaml:"title" json:"title"`
	Description Localized `yaml:"description,omitempty" json:"description,omitempty"`
	PriceCents  int       `yaml:"priceCents" json:"price_cents"`
}

// Catalog is one snapshot of the menu.
type Catalog struct {
	Version         string   `yaml:"version" json:"version"`
	DefaultLanguage string   `yaml:"defaultLanguage" json:"default_language"`
	Options         []Item   `yaml:"options" json:"options"`
	Extras          []Item   `yaml:"extras" json:"extras"`
	Languages       []string `yaml:"languages" json:"languages"`
}

// Source produces catalog snapshots.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// BuildCorpus converts the catalog into documents for lang: options first,
// then extras, each in catalog order.
func BuildCorpus(cat *Catalog, lang string) []index.Document {
	if cat == nil {
		return nil
	}
	fallback := cat.Fallback()
	corpus := make([]index.Document, 0, len(cat.Options)+len(cat.Extras))
	for _, group := range []struct {
		kind  index.Kind
		items []Item
	}{
		{index.KindOption, cat.Options},
		{index.KindExtra, cat.Extras},
	} {
		for _, item := range group.items {
			corpus = append(corpus, index.NewDocument(
				item.ID,
				group.kind,
				item.Title.Get(lang, fallback),
				item.Description.Get(lang, fallback),
				item.PriceCents,
			))
		}
	}
	return corpus
}

// SupportsLanguage reports whether lang is one of the catalog languages.
// A catalog that declares no languages accepts only its default.
func (c *Catalog) SupportsLanguage(lang string) bool {
	if len(c.Languages) == 0 {
		return lang == c.Fallback()
	}
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Option returns the n-th option, 1-based.
func (c *Catalog) Option(n int) (Item, bool) {
	if n < 1 || n > len(c.Options) {
		return Item{}, false
	}
	return c.Options[n-1], true
}

// Fallback is the language used for missing translations: DefaultLanguage,
// or the package default when the catalog does not set one.
func (c *Catalog) Fallback() string {
	if c.DefaultLanguage != "" {
		return c.DefaultLanguage
	}
	return DefaultLanguage
}

// Parse decodes a YAML catalog and fills in a content version when the
// document does not carry one.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if cat.Version == "" {
		cat.Version = ContentVersion(&cat)
	}
	return &cat, nil
}

// Validate checks that item IDs are present and unique and that no price
// is negative.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Options)+len(c.Extras))
	for _, items := range [][]Item{c.Options, c.Extras} {
		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("catalog item without id")
			}
			if item.PriceCents < 0 {
				return fmt.Errorf("catalog item %q has negative price %d", item.ID, item.PriceCents)
			}
			if _, dup := seen[item.ID]; dup {
				return fmt.Errorf("duplicate catalog item id %q", item.ID)
			}
			seen[item.ID] = struct{}{}
		}
	}
	return nil
}

// ContentVersion hashes the catalog content, ignoring Version itself.
func ContentVersion(c *Catalog) string {
	clone := *c
	clone.Version = ""
	data, _ := json.Marshal(clone)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}

// Default returns the embedded sample menu.
func Default() *Catalog {
	cat, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return cat
}

// StaticSource always returns the same catalog.
type StaticSource struct {
	Catalog *Catalog
}

func (s StaticSource) Load(context.Context) (*Catalog, error) {
	return s.Catalog, nil
}

// FileSource reads a YAML catalog from disk on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) (*Catalog, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", s.Path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", s.Path, err)
	}
	return cat, nil
}
