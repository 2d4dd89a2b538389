package models

import "time"

// Signature is a read-only related entity attached to a file. It is pulled
// in joins on file detail reads; no lifecycle operations act on it.
type Signature struct {
	ID            string
	FileID        string
	UserID        string
	SignatureType string
	SignedAt      time.Time
}
