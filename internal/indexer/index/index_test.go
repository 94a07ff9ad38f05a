package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCorpus() []Document {
	return []Document{
		NewDocument("opcion-1", KindOption, "Opción 1", "Tortilla, Huevo, Chorizo, Bebida", 850),
		NewDocument("opcion-2", KindOption, "Opción 2", "Tortilla, Queso, Papas, Bebida", 800),
		NewDocument("extra-huevo", KindExtra, "Huevo extra", "", 150),
	}
}

func TestBuildStatistics(t *testing.T) {
	idx := Build(sampleCorpus(), nil)

	require.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.N())
	assert.Equal(t, []int{6, 6, 2}, idx.DocumentLength)
	assert.InDelta(t, 14.0/3.0, idx.AverageDocumentLength, 1e-9)

	assert.Equal(t, 2, idx.DocumentFrequency["tortilla"])
	assert.Equal(t, 2, idx.DocumentFrequency["huevo"])
	assert.Equal(t, 1, idx.DocumentFrequency["extra"])
	assert.Equal(t, PostingList{{DocIndex: 0, Frequency: 1}, {DocIndex: 2, Frequency: 1}}, idx.Postings["huevo"])
}

func TestBuildInvariants(t *testing.T) {
	idx := Build(sampleCorpus(), nil)

	for term, postings := range idx.Postings {
		assert.Equal(t, idx.DocumentFrequency[term], len(postings), term)
		for i, p := range postings {
			assert.Positive(t, p.Frequency)
			assert.Less(t, p.DocIndex, idx.Len())
			if i > 0 {
				assert.Greater(t, p.DocIndex, postings[i-1].DocIndex)
			}
		}
	}
	assert.Len(t, idx.Vocabulary(), len(idx.DocumentFrequency))
	assert.IsIncreasing(t, idx.Vocabulary())
}

func TestBuildRepeatedTerm(t *testing.T) {
	idx := Build([]Document{NewDocument("d", KindOption, "Cola cola", "COLA", 100)}, nil)
	assert.Equal(t, PostingList{{DocIndex: 0, Frequency: 3}}, idx.Postings["cola"])
	assert.Equal(t, 1, idx.DocumentFrequency["cola"])
}

func TestBuildSkipsEmptyDocuments(t *testing.T) {
	corpus := append([]Document{{ID: "blank", Title: "¿?", Description: "--"}}, sampleCorpus()...)
	idx := Build(corpus, nil)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, "opcion-1", idx.Documents[0].ID)
	assert.Equal(t, 1, idx.Stats().Skipped)
}

func TestBuildEmptyCorpus(t *testing.T) {
	idx := Build(nil, nil)
	assert.Zero(t, idx.Len())
	assert.Equal(t, 1, idx.N())
	assert.Zero(t, idx.AverageDocumentLength)
	assert.Empty(t, idx.Vocabulary())
	assert.Equal(t, Stats{}, idx.Stats())
}

func TestBuildDerivesText(t *testing.T) {
	doc := Document{ID: "x", Title: "Queso", Description: "Porción de queso", Text: "stale"}
	idx := Build([]Document{doc}, nil)
	assert.Equal(t, "queso porcion de queso", idx.Documents[0].Text)
}

func TestStats(t *testing.T) {
	stats := Build(sampleCorpus(), nil).Stats()
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 10, stats.Terms)
	assert.Equal(t, 14, stats.Postings)
}

func BenchmarkBuild(b *testing.B) {
	corpus := make([]Document, 0, 200)
	for i := 0; i < 200; i++ {
		corpus = append(corpus, NewDocument(fmt.Sprintf("item-%d", i), KindOption,
			fmt.Sprintf("Opción %d", i), "Tortilla, Huevo, Chorizo, Bebida, Queso, Papas", 800))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(corpus, nil)
	}
}
