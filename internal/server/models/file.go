// Package models defines server-side data models persisted in the database.
package models

import "time"

// File describes metadata for a stored document. The binary content itself
// lives in object storage under Key.
type File struct {
	// ID is the record identifier.
	ID string
	// UserID is the owner of the file.
	UserID string
	// ContainerID is the owning container; empty means unfiled.
	ContainerID string

	// Key is the object-storage key (path) of the blob. Unique; changes on
	// a rename that replaces content with a different extension.
	Key string

	// FileName is the display name declared by the client.
	FileName string
	// FileSize is the declared byte count, string-encoded as received.
	FileSize string
	// FileType is the declared MIME content type.
	FileType string

	CreatedAt time.Time
}

// FileWithURL pairs a file record with a presigned download URL.
type FileWithURL struct {
	ID        string
	FileName  string
	FileType  string
	CreatedAt time.Time
	URL       string
}
