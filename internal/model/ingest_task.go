package model

// IngestTask is the queue payload dispatching one uploaded file to the
// background ingest worker.
type IngestTask struct {
	FileID    string  `json:"file_id"`
	Path      string  `json:"path"`
	Filename  string  `json:"filename"` // original upload name
	DocType   DocType `json:"doctype"`
	UserID    string  `json:"user_id"`
	SessionID string  `json:"session_id,omitempty"`
}
