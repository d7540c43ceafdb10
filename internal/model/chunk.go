package model

import "time"

// Page is one unit of extracted text within a document: a PDF page, or the
// whole document for single-page formats. Pages exist only during ingestion.
type Page struct {
	Number int
	Text   string
}

// Chunk is the unit of embedding and retrieval: a bounded text segment of a
// document plus the metadata bundle persisted alongside its vector.
// Chunk identity is (Filename, Sequence); re-ingesting a file with the same
// name overwrites rather than duplicates.
type Chunk struct {
	Filename  string     `json:"filename"`
	DocType   DocType    `json:"doctype"`
	Page      int        `json:"page"`
	Sequence  int        `json:"chunk_id"`
	Text      string     `json:"text"`
	Embedding []float32  `json:"-"`
	UserID    string     `json:"user_id"`
	SessionID string     `json:"session_id,omitempty"` // empty = no session
	Permanent bool       `json:"permanent"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil = never auto-expire
}
