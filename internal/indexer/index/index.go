// Package index builds the inverted-index statistics BM25 needs over a
// small menu corpus: document frequency, postings, document lengths and the
// average document length.
//
// An Index is immutable once built. Only the personal synonym store it
// carries keeps growing, which never requires a rebuild.
package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
)

// Index is the frozen corpus statistics for one catalog version and
// language.
type Index struct {
	Documents             []Document
	DocumentFrequency     map[string]int
	Postings              map[string]PostingList
	DocumentLength        []int
	AverageDocumentLength float64
	// Personal is the learned synonym table; it may be nil.
	Personal synonym.Store

	skipped    int
	vocabulary []string
}

// Build constructs an Index from corpus. Documents whose normalised text is
// empty are left out; the remaining ones keep their relative order and get
// indices 0..N-1. An empty corpus yields a valid, empty index.
func Build(corpus []Document, personal synonym.Store) *Index {
	idx := &Index{
		Documents:         make([]Document, 0, len(corpus)),
		DocumentFrequency: make(map[string]int),
		Postings:          make(map[string]PostingList),
		DocumentLength:    make([]int, 0, len(corpus)),
		Personal:          personal,
	}

	totalLength := 0
	for _, doc := range corpus {
		doc.Text = DeriveText(doc)
		if doc.Text == "" {
			idx.skipped++
			continue
		}
		tokens := strings.Split(doc.Text, " ")
		docIndex := len(idx.Documents)
		idx.Documents = append(idx.Documents, doc)
		idx.DocumentLength = append(idx.DocumentLength, len(tokens))
		totalLength += len(tokens)

		termFreq := make(map[string]int, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if termFreq[tok] == 0 {
				order = append(order, tok)
			}
			termFreq[tok]++
		}
		for _, term := range order {
			idx.Postings[term] = append(idx.Postings[term], Posting{
				DocIndex:  docIndex,
				Frequency: termFreq[term],
			})
			idx.DocumentFrequency[term]++
		}
	}

	idx.AverageDocumentLength = float64(totalLength) / float64(idx.N())

	idx.vocabulary = make([]string, 0, len(idx.DocumentFrequency))
	for term := range idx.DocumentFrequency {
		idx.vocabulary = append(idx.vocabulary, term)
	}
	sort.Strings(idx.vocabulary)
	return idx
}

// N is the document count used in IDF, never less than 1.
func (idx *Index) N() int {
	if len(idx.Documents) < 1 {
		return 1
	}
	return len(idx.Documents)
}

// Len is the actual number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.Documents)
}

// Vocabulary returns the sorted set of indexed terms. The slice is shared
// and must not be modified.
func (idx *Index) Vocabulary() []string {
	return idx.vocabulary
}

// Stats reports the size of the index.
func (idx *Index) Stats() Stats {
	postings := 0
	for _, pl := range idx.Postings {
		postings += len(pl)
	}
	return Stats{
		Documents:             len(idx.Documents),
		Terms:                 len(idx.DocumentFrequency),
		Postings:              postings,
		AverageDocumentLength: idx.AverageDocumentLength,
		Skipped:               idx.skipped,
	}
}
