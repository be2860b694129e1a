// Package models defines the data types shared by the Blink client layers:
// queue entries, credentials, tags, and remote drive objects.
package models

import "time"

// Status is the lifecycle state of a QueueEntry.
type Status string

const (
	StatusDetected           Status = "detected"
	StatusAwaitingAssignment Status = "awaiting_assignment"
	StatusUploading          Status = "uploading"
	StatusAssociating        Status = "associating"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// Terminal reports whether no further processing transitions are possible
// without user input.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Processable reports whether the entry may enter the upload step.
func (s Status) Processable() bool {
	return s == StatusAwaitingAssignment || s == StatusFailed
}

// QueueEntry describes one detected file awaiting or undergoing processing.
// FilePath is the uniqueness key: at most one live entry exists per path.
type QueueEntry struct {
	ID            string    `json:"id"`
	FilePath      string    `json:"file_path"`
	FileName      string    `json:"file_name"`
	DisplayName   string    `json:"display_name"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	TargetFolder  string    `json:"target_folder"`
	TagIDs        []int     `json:"tag_ids"`
	Status        Status    `json:"status"`
	LastError     string    `json:"last_error,omitempty"`
	DetectedAt    time.Time `json:"detected_at"`
	CompletedAt   time.Time `json:"completed_at,omitzero"`
}

// HasTag reports whether id is currently assigned to the entry.
func (e *QueueEntry) HasTag(id int) bool {
	for _, t := range e.TagIDs {
		if t == id {
			return true
		}
	}
	return false
}

// HistoryRecord is one append-only record of a completed upload.
type HistoryRecord struct {
	EntryID      string    `json:"entry_id"`
	FileName     string    `json:"file_name"`
	DisplayName  string    `json:"display_name"`
	TargetFolder string    `json:"target_folder"`
	RemoteFileID string    `json:"remote_file_id"`
	WebURL       string    `json:"web_url"`
	SizeBytes    int64     `json:"size_bytes"`
	TagIDs       []int     `json:"tag_ids"`
	CompletedAt  time.Time `json:"completed_at"`
}
