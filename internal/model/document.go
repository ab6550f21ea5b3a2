package model

import "time"

// Document is an archived record of an original physical document.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    string    `json:"author_id"`
	DocDate     time.Time `json:"doc_date"`
	CreatedAt   time.Time `json:"created_at"`

	// Photos are ordered most recently created first.
	Photos []Photo `json:"photos"`
}

// Photo is one stored image owned by exactly one Document.
type Photo struct {
	ID         int64 `json:"id"`
	DocumentID int64 `json:"document_id"`
	// Image is the content store key of the binary.
	Image       string    `json:"image"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is the acting user as supplied by the identity provider.
type Identity struct {
	ID         string `json:"id"`
	Privileged bool   `json:"privileged"`
}

// CanModify reports whether the identity may edit or delete doc.
func (i Identity) CanModify(doc *Document) bool {
	if i.Privileged {
		return true
	}
	return doc != nil && i.ID != "" && doc.AuthorID == i.ID
}
