package index

import "github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"

// Kind tags a catalog entry. It is informational and never scored.
type Kind string

const (
	KindOption Kind = "option"
	KindExtra  Kind = "extra"
)

// Document is one menu entry as seen by the index.
type Document struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int    `json:"price_cents"`
	// Text is the normalised title + description. Build always derives it.
	Text string `json:"-"`
}

// NewDocument returns a Document with Text derived from title and
// description.
func NewDocument(id string, kind Kind, title, description string, priceCents int) Document {
	d := Document{
		ID:          id,
		Kind:        kind,
		Title:       title,
		Description: description,
		PriceCents:  priceCents,
	}
	d.Text = DeriveText(d)
	return d
}

// DeriveText returns the normalised concatenation of title and description.
func DeriveText(d Document) string {
	return tokenizer.Normalize(d.Title + " " + d.Description)
}

// Posting records how often a term occurs in the document at DocIndex.
type Posting struct {
	DocIndex  int `json:"doc_index"`
	Frequency int `json:"frequency"`
}

// PostingList is ordered by ascending DocIndex.
type PostingList []Posting

// Stats summarises an index for diagnostics.
type Stats struct {
	Documents             int     `json:"documents"`
	Terms                 int     `json:"terms"`
	Postings              int     `json:"postings"`
	AverageDocumentLength float64 `json:"average_document_length"`
	Skipped               int     `json:"skipped"`
}
