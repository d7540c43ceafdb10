package model

import "time"

// Ingest task states for a document, queryable by file id.
const (
	IngestStatusPending    = "pending"
	IngestStatusProcessing = "processing"
	IngestStatusDone       = "done"
	IngestStatusFailed     = "failed"
)

// Document is the registry row for an uploaded file. Chunks are not owned
// here; they live in the vector store keyed by (filename, sequence).
type Document struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FileID      string     `gorm:"size:64;not null;uniqueIndex" json:"file_id"`
	Filename    string     `gorm:"size:256;not null;index" json:"filename"`
	DocType     DocType    `gorm:"size:16;not null" json:"doctype"`
	UserID      string     `gorm:"size:64;not null;index" json:"user_id"`
	SessionID   string     `gorm:"size:80;index" json:"session_id,omitempty"` // empty = permanent/public
	Permanent   bool       `json:"permanent"`
	Status      string     `gorm:"size:16;not null" json:"status"`
	ChunkCount  int        `json:"chunk_count"`
	StoredCount int        `json:"stored_count"`
	Error       string     `gorm:"size:512" json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
