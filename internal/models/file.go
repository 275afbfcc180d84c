package models

import "time"

// FileRecord is a node (file or directory) in a project's file tree.
// FileKey is content/storage addressed and is not guaranteed unique at
// the storage layer under concurrent writers; the duplicate resolver
// restores one live record per (project, key).
type FileRecord struct {
	ID        string
	ProjectID string
	TopicID   string
	ParentID  string // empty for tree roots
	Name      string
	FileKey   string
	IsDir     bool
	Sort      int
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
