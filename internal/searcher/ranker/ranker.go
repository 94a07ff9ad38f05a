package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
)

const (
	DefaultK1        = 1.5
	DefaultB         = 0.75
	DefaultTopK      = 3
	DefaultDampening = 0.9
)

// Confidence is a coarse display label derived from a result's score
// relative to the best score of its result set.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Options tunes scoring. Zero fields take the defaults; B must be in (0, 1].
type Options struct {
	K1          float64 `json:"k1"`
	B           float64 `json:"b"`
	TopK        int     `json:"top_k"`
	Dampening   float64 `json:"dampening"`
	MaxDistance int     `json:"max_distance"`
}

// DefaultOptions returns k1=1.5, b=0.75, topK=3, dampening 0.9 and a
// maximum fuzzy edit distance of 1.
func DefaultOptions() Options {
	return Options{
		K1:          DefaultK1,
		B:           DefaultB,
		TopK:        DefaultTopK,
		Dampening:   DefaultDampening,
		MaxDistance: fuzzy.DefaultMaxDistance,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K1 <= 0 {
		o.K1 = d.K1
	}
	if o.B <= 0 || o.B > 1 {
		o.B = d.B
	}
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.Dampening <= 0 || o.Dampening > 1 {
		o.Dampening = d.Dampening
	}
	if o.MaxDistance <= 0 {
		o.MaxDistance = d.MaxDistance
	}
	return o
}

// Result is one ranked document.
type Result struct {
	DocIndex   int        `json:"doc_index"`
	DocID      string     `json:"doc_id"`
	Title      string     `json:"title"`
	Kind       index.Kind `json:"kind"`
	PriceCents int        `json:"price_cents"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
}

// TermMatch describes how one expanded query term was scored.
type TermMatch struct {
	Term              string  `json:"term"`
	Source            string  `json:"source"`
	Mapped            string  `json:"mapped"`
	Distance          int     `json:"distance"`
	Factor            float64 `json:"factor"`
	DocumentFrequency int     `json:"document_frequency"`
	IDF               float64 `json:"idf"`
}

// Explanation is the full trace of a search.
type Explanation struct {
	Tokens  []string    `json:"tokens"`
	Terms   []TermMatch `json:"terms"`
	Results []Result    `json:"results"`
}

// Search ranks the documents of idx against query with BM25. The query is
// tokenised, expanded with table and idx.Personal, and each term is mapped
// onto the vocabulary by the fuzzy matcher. The result holds at most
// opts.TopK entries in non-increasing score order; ties keep ascending
// document order. It never returns nil.
func Search(query string, idx *index.Index, table synonym.Table, opts Options) []Result {
	return Explain(query, idx, table, opts).Results
}

// Explain runs Search and also reports the per-term scoring decisions.
func Explain(query string, idx *index.Index, table synonym.Table, opts Options) Explanation {
	opts = opts.withDefaults()
	exp := Explanation{
		Tokens:  tokenizer.Tokenize(query),
		Results: []Result{},
	}
	if len(exp.Tokens) == 0 || idx == nil || idx.Len() == 0 {
		return exp
	}

	terms := synonym.Expand(exp.Tokens, table, idx.Personal)
	matcher := fuzzy.NewMatcher(idx.Vocabulary(), opts.MaxDistance)

	n := float64(idx.N())
	scores := make([]float64, idx.Len())
	touched := make([]bool, idx.Len())

	exp.Terms = make([]TermMatch, 0, len(terms))
	for _, term := range terms {
		mapped, distance := matcher.Match(term.Value)
		match := TermMatch{
			Term:     term.Value,
			Source:   term.Source,
			Mapped:   mapped,
			Distance: distance,
			Factor:   1.0,
		}
		if mapped != term.Source {
			match.Factor = opts.Dampening
		}
		ni := idx.DocumentFrequency[mapped]
		match.DocumentFrequency = ni
		if ni == 0 {
			exp.Terms = append(exp.Terms, match)
			continue
		}
		match.IDF = computeIDF(n, float64(ni))
		exp.Terms = append(exp.Terms, match)

		for _, posting := range idx.Postings[mapped] {
			tfNorm := computeTFNorm(
				float64(posting.Frequency),
				float64(idx.DocumentLength[posting.DocIndex]),
				idx.AverageDocumentLength,
				opts,
			)
			scores[posting.DocIndex] += match.IDF * tfNorm * match.Factor
			touched[posting.DocIndex] = true
		}
	}

	ranked := make([]Result, 0, len(scores))
	for i, score := range scores {
		if !touched[i] {
			continue
		}
		doc := idx.Documents[i]
		ranked = append(ranked, Result{
			DocIndex:   i,
			DocID:      doc.ID,
			Title:      doc.Title,
			Kind:       doc.Kind,
			PriceCents: doc.PriceCents,
			Score:      score,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	assignConfidence(ranked)
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}
	exp.Results = ranked
	return exp
}

// Bucket labels score relative to max.
func Bucket(score, max float64) Confidence {
	if max <= 0 {
		return ConfidenceMedium
	}
	ratio := score / max
	switch {
	case ratio >= 0.66:
		return ConfidenceHigh
	case ratio >= 0.33:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func assignConfidence(results []Result) {
	if len(results) == 0 {
		return
	}
	top := results[0].Score
	for i := range results {
		results[i].Confidence = Bucket(results[i].Score, top)
	}
}

// computeIDF keeps the "+1" inside the logarithm so terms present in every
// document still weigh >= 0.
func computeIDF(totalDocs, docFreq float64) float64 {
	return math.Log((totalDocs-docFreq+0.5)/(docFreq+0.5) + 1)
}

func computeTFNorm(termFreq, docLength, avgDocLength float64, opts Options) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + opts.K1*(1-opts.B+opts.B*lengthRatio)
	return (termFreq * (opts.K1 + 1)) / denominator
}
