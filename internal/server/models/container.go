package models

import "time"

// Container is a user-defined folder-like grouping of files. Containers form
// a forest via ParentID; an empty ParentID marks a root.
type Container struct {
	ID          string
	UserID      string
	Name        string
	Description string
	// ParentID references the parent container, empty for roots.
	ParentID  string
	CreatedAt time.Time
}

// ContainerListing is a container row augmented with the number of file
// records directly referencing it.
type ContainerListing struct {
	Container
	FilesCount int
}
