// Package synonym broadens query tokens with a curated synonym table and
// with synonyms learned from earlier searches. Only queries are expanded;
// indexed documents are never rewritten.
package synonym

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
	"gopkg.in/yaml.v3"
)

// Table maps a normalised token to related tokens.
type Table map[string][]string

// defaultEntries is the curated menu vocabulary. Keys and values are
// normalised by DefaultTable, so accents are allowed here.
var defaultEntries = map[string][]string{
	"bebida":   {"cola", "refresco", "gaseosa", "soda", "drink"},
	"cola":     {"bebida", "gaseosa", "refresco"},
	"refresco": {"bebida", "cola", "gaseosa", "soda"},
	"gaseosa":  {"bebida", "cola", "refresco", "soda"},
	"soda":     {"bebida", "refresco", "gaseosa"},
	"drink":    {"bebida", "soda", "beverage"},
	"beverage": {"drink", "bebida"},
	"huevo":    {"egg"},
	"huevos":   {"huevo", "egg"},
	"egg":      {"huevo"},
	"eggs":     {"egg", "huevo"},
	"papas":    {"patatas", "fries", "potato"},
	"patatas":  {"papas", "fries"},
	"fries":    {"papas", "patatas"},
	"chorizo":  {"sausage", "embutido"},
	"sausage":  {"chorizo"},
	"tortilla": {"omelette", "omelet"},
	"omelette": {"tortilla"},
	"omelet":   {"tortilla"},
	"queso":    {"cheese"},
	"cheese":   {"queso"},
	"pan":      {"bread"},
	"bread":    {"pan"},
	"picante":  {"spicy", "chile"},
	"spicy":    {"picante"},
	"postre":   {"dessert", "dulce"},
	"dessert":  {"postre"},
	"carne":    {"meat", "res"},
	"meat":     {"carne"},
	"pollo":    {"chicken"},
	"chicken":  {"pollo"},

	"extra":     {"adicional", "complemento"},
	"adicional": {"extra"},
}

// DefaultTable returns the built-in Spanish/English menu synonym table.
func DefaultTable() Table {
	return normalizeTable(defaultEntries)
}

// LoadTable reads a YAML synonym table of the form `token: [syn, syn]`.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synonym table %s: %w", path, err)
	}
	raw := make(map[string][]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing synonym table %s: %w", path, err)
	}
	return normalizeTable(raw), nil
}

// Merge returns a new table holding the entries of t followed by those of
// other, deduplicated per key.
func (t Table) Merge(other Table) Table {
	merged := make(Table, len(t)+len(other))
	for _, src := range []Table{t, other} {
		for key, values := range src {
			merged[key] = appendUnique(merged[key], values...)
		}
	}
	return merged
}

// Lookup returns the synonyms listed for token.
func (t Table) Lookup(token string) []string {
	if t == nil {
		return nil
	}
	return t[token]
}

func normalizeTable(raw map[string][]string) Table {
	table := make(Table, len(raw))
	for key, values := range raw {
		normKey := tokenizer.Normalize(key)
		if normKey == "" {
			continue
		}
		for _, v := range values {
			for _, tok := range tokenizer.Tokenize(v) {
				if tok != normKey {
					table[normKey] = appendUnique(table[normKey], tok)
				}
			}
		}
	}
	return table
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
