package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock

	// Tx is handed to the WithTx callback.
	Tx *MockDocumentTx
}

func (m *MockDocumentRepository) List(ctx context.Context, f repository.ListFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

// WithTx records the call; a configured error is returned without running fn,
// otherwise fn runs against Tx and its error is returned.
func (m *MockDocumentRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.DocumentTx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Tx)
}

type MockDocumentTx struct {
	mock.Mock
}

func (m *MockDocumentTx) LockByID(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentTx) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if f, ok := args.Get(0).(func(*model.Document) *model.Document); ok {
		return f(doc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentTx) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if f, ok := args.Get(0).(func(*model.Document) *model.Document); ok {
		return f(doc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentTx) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentTx) ListPhotos(ctx context.Context, documentID int64) ([]model.Photo, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Photo), args.Error(1)
}

func (m *MockDocumentTx) CreatePhoto(ctx context.Context, p *model.Photo) (*model.Photo, error) {
	args := m.Called(ctx, p)
	if f, ok := args.Get(0).(func(*model.Photo) *model.Photo); ok {
		return f(p), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockDocumentTx) DeletePhoto(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
