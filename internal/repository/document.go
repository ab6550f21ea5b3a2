// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres). No business logic here.
package repository

import (
	"context"
	"time"

	"photoarchive/internal/model"
)

// DocumentRepository defines read access to documents and the transaction boundary
// for every write. Missing rows are reported as sql.ErrNoRows.
type DocumentRepository interface {
	// List returns one page of documents matching the filter, newest doc_date first,
	// with each document's photos loaded.
	List(ctx context.Context, f ListFilter, pq PageQuery) (*PageResult[model.Document], error)

	// FindByID returns a document with its photos.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// WithTx runs fn inside one transaction. The transaction commits when fn returns nil
	// and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DocumentTx) error) error
}

// DocumentTx is the set of record mutations available inside a transaction.
type DocumentTx interface {
	// LockByID loads a document (without photos) and holds a row lock until the
	// transaction ends.
	LockByID(ctx context.Context, id int64) (*model.Document, error)

	// Create inserts a document and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Update writes title, description and doc_date. Author and created_at are never written.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes the document row.
	Delete(ctx context.Context, id int64) error

	// ListPhotos returns the document's photos, most recent first.
	ListPhotos(ctx context.Context, documentID int64) ([]model.Photo, error)

	// CreatePhoto inserts a photo row.
	CreatePhoto(ctx context.Context, p *model.Photo) (*model.Photo, error)

	// DeletePhoto removes a photo row.
	DeletePhoto(ctx context.Context, id int64) error
}

// ListFilter narrows a document listing. All set predicates are ANDed.
type ListFilter struct {
	// Query matches title or description, case-insensitively, as a substring.
	Query string
	// From is the inclusive lower bound on doc_date; nil means unbounded.
	From *time.Time
	// To is the inclusive upper bound on doc_date.
	To time.Time
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
