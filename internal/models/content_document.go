package models

import "time"

// ContentDocument is one CMS document as stored in the Postgres mirror.
// Slug, Title, Date and AuthorID are only set for posts, Name for authors.
type ContentDocument struct {
	ID        string
	Type      DocumentType
	UpdatedAt time.Time
	Slug      string
	Title     string
	Name      string
	Date      *time.Time
	AuthorID  string
}

// ContentSnapshot is the full dataset as read in one query.
type ContentSnapshot struct {
	Documents []ContentDocument
}

// MirrorSyncStats summarises a full mirror sync.
type MirrorSyncStats struct {
	Documents int
	Posts     int
	Authors   int
	Deleted   int64
}

// ParseContentDate parses a CMS date or datetime field. It returns nil for
// empty or unparsable values.
func ParseContentDate(value string) *time.Time {
	return parseDate(value)
}
