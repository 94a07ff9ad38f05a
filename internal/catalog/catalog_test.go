package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()
	assert.Len(t, cat.Options, 4)
	assert.Len(t, cat.Extras, 4)
	assert.Equal(t, "es", cat.DefaultLanguage)
	assert.NotEmpty(t, cat.Version)
	assert.True(t, cat.SupportsLanguage("en"))
	assert.False(t, cat.SupportsLanguage("fr"))
}

func TestBuildCorpusOrderAndLanguage(t *testing.T) {
	cat := Default()

	es := BuildCorpus(cat, "es")
	require.Len(t, es, 8)
	assert.Equal(t, "opcion-1", es[0].ID)
	assert.Equal(t, index.KindOption, es[0].Kind)
	assert.Equal(t, "extra-huevo", es[4].ID)
	assert.Equal(t, index.KindExtra, es[4].Kind)
	assert.Equal(t, "opcion 1 tortilla huevo chorizo bebida", es[0].Text)

	en := BuildCorpus(cat, "en")
	assert.Equal(t, "Option 1", en[0].Title)
	assert.Equal(t, 850, en[0].PriceCents)

	fr := BuildCorpus(cat, "fr")
	assert.Equal(t, "Opción 1", fr[0].Title, "missing translations fall back to the default language")

	assert.Nil(t, BuildCorpus(nil, "es"))
}

func TestLocalizedGet(t *testing.T) {
	l := Localized{"es": "Queso", "en": "Cheese"}
	assert.Equal(t, "Cheese", l.Get("en", "es"))
	assert.Equal(t, "Queso", l.Get("fr", "es"))
	assert.Equal(t, "Cheese", Localized{"en": "Cheese", "pt": "Queijo"}.Get("fr", "es"))
	assert.Equal(t, "", Localized{}.Get("es", "es"))
}

func TestParse(t *testing.T) {
	doc := []byte(`
defaultLanguage: en
languages: [en]
options:
  - id: a
    title: {en: Burger}
    priceCents: 900
extras:
  - id: b
    title: {en: Fries}
    priceCents: 300
`)
	cat, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, ContentVersion(cat), cat.Version)
	assert.Equal(t, "Burger", cat.Options[0].Title["en"])

	again, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, cat.Version, again.Version, "version is a content hash")

	_, err = Parse([]byte("options: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dup := &Catalog{
		Options: []Item{{ID: "a"}},
		Extras:  []Item{{ID: "a"}},
	}
	assert.ErrorContains(t, dup.Validate(), "duplicate")

	missing := &Catalog{Options: []Item{{Title: Localized{"es": "x"}}}}
	assert.Error(t, missing.Validate())

	negative := &Catalog{Extras: []Item{{ID: "extra-huevo", PriceCents: -150}}}
	assert.ErrorContains(t, negative.Validate(), "negative price")

	free := &Catalog{Extras: []Item{{ID: "extra-agua", PriceCents: 0}}}
	assert.NoError(t, free.Validate())

	assert.NoError(t, Default().Validate())
}

func TestFallback(t *testing.T) {
	assert.Equal(t, DefaultLanguage, (&Catalog{}).Fallback())
	assert.Equal(t, "en", (&Catalog{DefaultLanguage: "en"}).Fallback())
	assert.True(t, (&Catalog{}).SupportsLanguage(DefaultLanguage))
}

func TestOption(t *testing.T) {
	cat := Default()
	item, ok := cat.Option(2)
	require.True(t, ok)
	assert.Equal(t, "opcion-2", item.ID)

	_, ok = cat.Option(0)
	assert.False(t, ok)
	_, ok = cat.Option(5)
	assert.False(t, ok)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options:\n  - id: x\n    title: {es: Sopa}\n    priceCents: 500\n"), 0o644))

	cat, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", cat.Options[0].ID)
	assert.True(t, cat.SupportsLanguage("es"), "a catalog without languages accepts its default")

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "none.yaml")}.Load(context.Background())
	assert.Error(t, err)
}
