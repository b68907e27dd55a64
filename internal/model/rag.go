// Package model defines shared result types for the visrag pipeline.
package model

// PageSource identifies one retrieved page backing an answer.
type PageSource struct {
	// DocumentID is the source document identifier.
	DocumentID string `json:"document_id"`

	// PageNumber is the 1-based page position within the document.
	PageNumber int `json:"page_number"`

	// ImagePath is the rendered page image supplied to the generator.
	ImagePath string `json:"image_path"`

	// Score is the late-interaction similarity score against the question.
	Score float64 `json:"score"`
}

// Answer is the result of answering one question.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Sources are the retrieved pages the answer is grounded in, in
	// descending score order.
	Sources []PageSource `json:"sources"`
}

// SkippedDocument reports one document that failed during bulk indexing.
type SkippedDocument struct {
	// Path is the input file.
	Path string `json:"path"`

	// Reason is the failure rendered as text.
	Reason string `json:"reason"`
}

// IndexReport summarizes one IndexDocuments call. Indexing is best-effort
// across documents: failures are reported here, not raised.
type IndexReport struct {
	// Indexed counts documents successfully added to the index.
	Indexed int `json:"indexed"`

	// Pages counts pages embedded and stored across indexed documents.
	Pages int `json:"pages"`

	// Skipped lists documents that failed and were left out.
	Skipped []SkippedDocument `json:"skipped,omitempty"`
}
