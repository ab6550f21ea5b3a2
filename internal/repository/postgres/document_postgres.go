package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// List counts the matching documents, fetches the requested page ordered by
// doc_date DESC, id DESC and then loads the page's photos with a single query.
func (r *DocumentPostgres) List(ctx context.Context, f repository.ListFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := listConditions(f)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("documents").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	listSQL, args, err := psql.Select(documentColumns...).
		From("documents").
		Where(where).
		OrderBy("doc_date DESC", "id DESC").
		Limit(uint64(pq.Limit)).
		Offset(uint64(pq.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0, pq.Limit)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachPhotos(ctx, items); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// FindByID fetches a single document by its ID together with its photos.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	d, err := findDocument(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	photos, err := listPhotos(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	d.Photos = photos
	return d, nil
}

// WithTx begins a transaction, hands fn a transaction-bound DocumentTx and commits
// only if fn succeeds. A panic in fn rolls back before propagating.
func (r *DocumentPostgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.DocumentTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &documentTx{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *DocumentPostgres) attachPhotos(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]int64, len(docs))
	byID := make(map[int64]int, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
		byID[docs[i].ID] = i
		docs[i].Photos = make([]model.Photo, 0)
	}

	q, args, err := psql.Select(photoColumns...).
		From("photos").
		Where(sq.Eq{"document_id": ids}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build photos query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return err
		}
		if i, ok := byID[p.DocumentID]; ok {
			docs[i].Photos = append(docs[i].Photos, p)
		}
	}
	return rows.Err()
}

func listConditions(f repository.ListFilter) sq.And {
	where := sq.And{}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"doc_date": *f.From})
	}
	where = append(where, sq.LtOrEq{"doc_date": f.To})
	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
