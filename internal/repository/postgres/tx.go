package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
)

var (
	documentColumns = []string{"id", "title", "description", "author_id", "doc_date", "created_at"}
	photoColumns    = []string{"id", "document_id", "image", "content_type", "size", "created_at"}

	documentSelect = strings.Join(documentColumns, ", ")
	photoSelect    = strings.Join(photoColumns, ", ")
)

// documentTx implements repository.DocumentTx on top of an open *sql.Tx.
type documentTx struct {
	q queryer
}

var _ repository.DocumentTx = (*documentTx)(nil)

func (t *documentTx) LockByID(ctx context.Context, id int64) (*model.Document, error) {
	return findDocument(ctx, t.q, id, true)
}

func (t *documentTx) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (title, description, author_id, doc_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + documentSelect
	row := t.q.QueryRowContext(ctx, q,
		doc.Title,
		doc.Description,
		doc.AuthorID,
		doc.DocDate,
		doc.CreatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *documentTx) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		UPDATE documents
		SET title = $1, description = $2, doc_date = $3
		WHERE id = $4
		RETURNING ` + documentSelect
	row := t.q.QueryRowContext(ctx, q, doc.Title, doc.Description, doc.DocDate, doc.ID)
	out, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *documentTx) Delete(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, t.q, `DELETE FROM documents WHERE id = $1`, id)
}

func (t *documentTx) ListPhotos(ctx context.Context, documentID int64) ([]model.Photo, error) {
	return listPhotos(ctx, t.q, documentID)
}

func (t *documentTx) CreatePhoto(ctx context.Context, p *model.Photo) (*model.Photo, error) {
	q := `
		INSERT INTO photos (document_id, image, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + photoSelect
	row := t.q.QueryRowContext(ctx, q, p.DocumentID, p.Image, p.ContentType, p.Size, p.CreatedAt)
	out, err := scanPhoto(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *documentTx) DeletePhoto(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, t.q, `DELETE FROM photos WHERE id = $1`, id)
}

func findDocument(ctx context.Context, q queryer, id int64, lock bool) (*model.Document, error) {
	query := `SELECT ` + documentSelect + ` FROM documents WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	d, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func listPhotos(ctx context.Context, q queryer, documentID int64) ([]model.Photo, error) {
	query := `SELECT ` + photoSelect + ` FROM photos WHERE document_id = $1 ORDER BY id DESC`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]model.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// execAffectingOne reports sql.ErrNoRows when the statement touched nothing.
func execAffectingOne(ctx context.Context, q queryer, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (model.Document, error) {
	var d model.Document
	err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.AuthorID,
		&d.DocDate,
		&d.CreatedAt,
	)
	return d, err
}

func scanPhoto(s rowScanner) (model.Photo, error) {
	var p model.Photo
	err := s.Scan(
		&p.ID,
		&p.DocumentID,
		&p.Image,
		&p.ContentType,
		&p.Size,
		&p.CreatedAt,
	)
	return p, err
}
