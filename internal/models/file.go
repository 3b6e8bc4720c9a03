package models

import (
	"encoding/json"
	"time"
)

// FileStatus represents the lifecycle state of an uploaded file.
type FileStatus string

const (
	FileStatusUploaded FileStatus = "uploaded"
	FileStatusParsing  FileStatus = "parsing"
	FileStatusParsed   FileStatus = "parsed"
	FileStatusError    FileStatus = "error"
)

// UploadedFile is the client-side record of a file the server accepted.
// FileID is issued by the server at upload time and never changes.
type UploadedFile struct {
	FileID       string          `json:"file_id"`
	Category     Category        `json:"type"`
	Name         string          `json:"filename"`
	SizeBytes    int64           `json:"size,omitempty"`
	UploadedAt   time.Time       `json:"uploaded_at,omitempty"`
	Status       FileStatus      `json:"status"`
	ParsedData   json.RawMessage `json:"parsed_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorDetail  string          `json:"error_details,omitempty"`
}

// Parsed reports whether the server has successfully parsed this file.
func (f *UploadedFile) Parsed() bool {
	return f.Status == FileStatusParsed
}
