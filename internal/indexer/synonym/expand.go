package synonym

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
)

// MinLearnLength is the exclusive lower bound on query-token length for
// learning: only tokens longer than this are associated with a result.
const MinLearnLength = 3

// Term is one entry of an expanded query. Source is the query token the
// term was derived from; for original tokens Value == Source.
type Term struct {
	Value  string
	Source string
}

// Original reports whether the term is a literal query token.
func (t Term) Original() bool {
	return t.Value == t.Source
}

// Expand returns the deduplicated union of tokens, their static synonyms
// and their personal synonyms. Original tokens always come first, in query
// order, so expansion never drops a token. personal may be nil.
func Expand(tokens []string, table Table, personal Store) []Term {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens)*2)
	terms := make([]Term, 0, len(tokens)*2)
	add := func(value, source string) {
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		terms = append(terms, Term{Value: value, Source: source})
	}

	for _, tok := range tokens {
		add(tok, tok)
	}
	for _, tok := range tokens {
		for _, syn := range table.Lookup(tok) {
			for _, part := range tokenizer.Tokenize(syn) {
				add(part, tok)
			}
		}
		if personal == nil {
			continue
		}
		for _, syn := range personal.Lookup(tok) {
			for _, part := range tokenizer.Tokenize(syn) {
				add(part, tok)
			}
		}
	}
	return terms
}

// Values returns the term values in order.
func Values(terms []Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Value
	}
	return out
}

// Learn associates each query token longer than MinLearnLength with the
// lead token of the top result's title, then persists the store. It
// returns how many new pairs were recorded. Callers treat the error as
// non-fatal.
func Learn(ctx context.Context, store Store, queryTokens []string, topTitle string) (int, error) {
	if store == nil {
		return 0, nil
	}
	lead := tokenizer.Lead(topTitle)
	if lead == "" {
		return 0, nil
	}
	learned := 0
	for _, tok := range queryTokens {
		if len(tok) <= MinLearnLength || tok == lead {
			continue
		}
		if store.Add(tok, lead) {
			learned++
		}
	}
	if learned == 0 {
		return 0, nil
	}
	return learned, store.Persist(ctx)
}
