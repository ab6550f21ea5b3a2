package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"photoarchive/internal/model"
	"photoarchive/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) List(ctx context.Context, f service.DocumentFilter, page int) (*service.DocumentPage, error) {
	args := m.Called(ctx, f, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPage), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Create(ctx context.Context, in service.DocumentInput, author model.Identity, ops ...service.PhotoOp) (*model.Document, error) {
	args := m.Called(ctx, in, author, ops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, id int64, in service.DocumentInput, ops ...service.PhotoOp) (*model.Document, error) {
	args := m.Called(ctx, id, in, ops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) Reconcile(ctx context.Context, id int64, ops []service.PhotoOp) (*service.ReconcileResult, error) {
	args := m.Called(ctx, id, ops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Export(ctx context.Context, documentID int64, sel service.PhotoSelector) (*service.Archive, error) {
	args := m.Called(ctx, documentID, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Archive), args.Error(1)
}

func (m *MockArchiveService) OpenPhoto(ctx context.Context, documentID, photoID int64) (io.ReadCloser, *model.Photo, error) {
	args := m.Called(ctx, documentID, photoID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Photo), args.Error(2)
}

func (m *MockArchiveService) PhotoURL(ctx context.Context, documentID, photoID int64) (string, error) {
	args := m.Called(ctx, documentID, photoID)
	return args.String(0), args.Error(1)
}
