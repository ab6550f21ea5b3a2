package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
	"photoarchive/internal/storage"
)

// PageSize is the fixed number of documents per listing page.
const PageSize = 12

// DocumentFilter narrows a listing. A nil To means "up to now".
type DocumentFilter struct {
	Query string
	From  *time.Time
	To    *time.Time
}

// DocumentPage is the service-level DTO for one page of documents.
type DocumentPage struct {
	Items       []model.Document `json:"data"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
	Total       int              `json:"total"`
	NumPages    int              `json:"num_pages"`
	HasNext     bool             `json:"has_next"`
	HasPrevious bool             `json:"has_previous"`
}

// DocumentService defines the document and attachment use cases.
type DocumentService interface {
	// List returns one page (1-based) of documents matching the filter.
	List(ctx context.Context, f DocumentFilter, page int) (*DocumentPage, error)

	// Get returns a document with its photos.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// Create stores a new document authored by author. Optional ops are reconciled in the
	// same transaction.
	Create(ctx context.Context, in DocumentInput, author model.Identity, ops ...PhotoOp) (*model.Document, error)

	// Update changes title, description and doc_date, reconciling optional ops in the
	// same transaction.
	Update(ctx context.Context, id int64, in DocumentInput, ops ...PhotoOp) (*model.Document, error)

	// Delete removes a document, its photos and their stored content.
	Delete(ctx context.Context, id int64) error

	// Reconcile applies an attachment submission to an existing document.
	Reconcile(ctx context.Context, id int64, ops []PhotoOp) (*ReconcileResult, error)
}

// Option customizes a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store  storage.Storage
	repo   repository.DocumentRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, logger *zap.Logger, opts ...Option) DocumentService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{
		store:  store,
		repo:   repo,
		logger: logger.Named("documents"),
		now:    o.now,
	}
}

// List resolves the open upper date bound once, then pages through the repository.
// A page past the last one is ErrNotFound, except page 1 which may be empty.
func (s *documentService) List(ctx context.Context, f DocumentFilter, page int) (*DocumentPage, error) {
	if page < 1 {
		return nil, newValidationError(map[string]string{"page": "page must be a positive integer"}, nil)
	}

	to := s.now()
	if f.To != nil {
		to = *f.To
	}

	res, err := s.repo.List(ctx, repository.ListFilter{Query: f.Query, From: f.From, To: to}, repository.PageQuery{
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	})
	if err != nil {
		return nil, err
	}

	numPages := (res.Total + PageSize - 1) / PageSize
	if numPages == 0 {
		numPages = 1
	}
	if page > numPages {
		return nil, ErrNotFound
	}

	return &DocumentPage{
		Items:       res.Items,
		Page:        page,
		PageSize:    PageSize,
		Total:       res.Total,
		NumPages:    numPages,
		HasNext:     page < numPages,
		HasPrevious: page > 1,
	}, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("find document", err)
	}
	return doc, nil
}

// Create ignores in.AuthorID: the author is always the acting identity.
func (s *documentService) Create(ctx context.Context, in DocumentInput, author model.Identity, ops ...PhotoOp) (*model.Document, error) {
	if author.ID == "" {
		return nil, newValidationError(map[string]string{"author": "an authenticated author is required"}, nil)
	}
	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	prepared, err := prepareOps(ops)
	if err != nil {
		return nil, err
	}

	var (
		out     *model.Document
		ch      contentChanges
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx repository.DocumentTx) error {
		doc, err := tx.Create(ctx, &model.Document{
			Title:       f.title,
			Description: f.description,
			AuthorID:    author.ID,
			DocDate:     f.docDate,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		doc.Photos = []model.Photo{}
		if len(prepared) > 0 {
			res, err := s.reconcileTx(ctx, tx, doc, prepared, &ch)
			if err != nil {
				return err
			}
			doc.Photos = res.Photos
		}
		out = doc
		return nil
	})
	s.settle(ctx, &ch, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document_created",
		zap.Int64("document_id", out.ID),
		zap.String("author_id", out.AuthorID),
		zap.Int("photos", len(out.Photos)),
	)
	return out, nil
}

// Update never writes author or created_at.
func (s *documentService) Update(ctx context.Context, id int64, in DocumentInput, ops ...PhotoOp) (*model.Document, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	prepared, err := prepareOps(ops)
	if err != nil {
		return nil, err
	}

	var (
		out     *model.Document
		ch      contentChanges
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx repository.DocumentTx) error {
		doc, err := tx.LockByID(ctx, id)
		if err != nil {
			return notFound("lock document", err)
		}
		doc.Title = f.title
		doc.Description = f.description
		doc.DocDate = f.docDate

		updated, err := tx.Update(ctx, doc)
		if err != nil {
			return notFound("update document", err)
		}

		if len(prepared) > 0 {
			res, err := s.reconcileTx(ctx, tx, updated, prepared, &ch)
			if err != nil {
				return err
			}
			updated.Photos = res.Photos
		} else {
			photos, err := tx.ListPhotos(ctx, id)
			if err != nil {
				return fmt.Errorf("list photos: %w", err)
			}
			updated.Photos = photos
		}
		out = updated
		return nil
	})
	s.settle(ctx, &ch, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document_updated", zap.Int64("document_id", out.ID), zap.Int("photos", len(out.Photos)))
	return out, nil
}

// Delete enumerates and removes dependents itself: the photo records go first and the
// document row last. Their content is removed after the transaction commits.
func (s *documentService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrIDRequired
	}

	var (
		removed int
		ch      contentChanges
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.DocumentTx) error {
		if _, err := tx.LockByID(ctx, id); err != nil {
			return notFound("lock document", err)
		}
		photos, err := tx.ListPhotos(ctx, id)
		if err != nil {
			return fmt.Errorf("list photos: %w", err)
		}
		for _, p := range photos {
			if err := removePhoto(ctx, tx, p, &ch); err != nil {
				return err
			}
		}
		removed = len(photos)
		if err := tx.Delete(ctx, id); err != nil {
			return notFound("delete document", err)
		}
		return nil
	})
	s.settle(ctx, &ch, err)
	if err != nil {
		return err
	}

	s.logger.Info("document_deleted", zap.Int64("document_id", id), zap.Int("photos_removed", removed))
	return nil
}

func (s *documentService) Reconcile(ctx context.Context, id int64, ops []PhotoOp) (*ReconcileResult, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	prepared, err := prepareOps(ops)
	if err != nil {
		return nil, err
	}

	var (
		res     *ReconcileResult
		ch      contentChanges
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx repository.DocumentTx) error {
		doc, err := tx.LockByID(ctx, id)
		if err != nil {
			return notFound("lock document", err)
		}
		res, err = s.reconcileTx(ctx, tx, doc, prepared, &ch)
		return err
	})
	s.settle(ctx, &ch, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("attachments_reconciled",
		zap.Int64("document_id", id),
		zap.Int("added", res.Added),
		zap.Int("removed", res.Removed),
	)
	return res, nil
}
