package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
	"photoarchive/internal/storage"
)

// PhotoSelector chooses which of a document's photos go into an archive.
type PhotoSelector struct {
	photoID int64
}

// AllPhotos selects every photo of the document.
func AllPhotos() PhotoSelector { return PhotoSelector{} }

// SinglePhoto selects one photo. An id of 0 selects all photos.
func SinglePhoto(id int64) PhotoSelector { return PhotoSelector{photoID: id} }

// All reports whether the selector covers every photo.
func (s PhotoSelector) All() bool { return s.photoID <= 0 }

// resolve keeps the list order. A single id not owned by the document yields an empty list.
func (s PhotoSelector) resolve(photos []model.Photo) []model.Photo {
	if s.All() {
		return photos
	}
	for _, p := range photos {
		if p.ID == s.photoID {
			return []model.Photo{p}
		}
	}
	return []model.Photo{}
}

// Archive is a finished zip ready to be streamed. Closing Body releases the scratch file.
type Archive struct {
	Filename string
	Size     int64
	Entries  []string
	Body     io.ReadCloser
}

// ArchiveService exports stored photos.
type ArchiveService interface {
	// Export builds a zip of the selected photos of a document.
	Export(ctx context.Context, documentID int64, sel PhotoSelector) (*Archive, error)

	// OpenPhoto streams the content of one photo owned by the document.
	OpenPhoto(ctx context.Context, documentID, photoID int64) (io.ReadCloser, *model.Photo, error)

	// PhotoURL returns a time-limited direct download URL for one photo owned by the
	// document. Backends without URL support yield storage.ErrPresignUnsupported.
	PhotoURL(ctx context.Context, documentID, photoID int64) (string, error)
}

// PhotoURLExpiry is how long a URL from PhotoURL stays valid.
const PhotoURLExpiry = 15 * time.Minute

// ArchiveOptions tunes archive building.
type ArchiveOptions struct {
	// ScratchDir holds archives while they are built and streamed. Empty means os.TempDir().
	ScratchDir string
	// ReadConcurrency bounds parallel content reads. Values below 1 mean 4.
	ReadConcurrency int
}

type archiveService struct {
	store  storage.Storage
	repo   repository.DocumentRepository
	logger *zap.Logger
	opts   ArchiveOptions
}

// NewArchiveService constructs a new ArchiveService.
func NewArchiveService(store storage.Storage, repo repository.DocumentRepository, logger *zap.Logger, opts ArchiveOptions) ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	if opts.ReadConcurrency < 1 {
		opts.ReadConcurrency = 4
	}
	return &archiveService{store: store, repo: repo, logger: logger.Named("archive"), opts: opts}
}

var entryNameReplacer = strings.NewReplacer("/", "_", `\`, "_")

// EntryName names the pos-th (1-based) entry of an archive for a document titled title.
// Entries always carry a .png extension whatever the stored format.
func EntryName(title string, pos int) string {
	return fmt.Sprintf("%s_%d.png", entryNameReplacer.Replace(title), pos)
}

func (s *archiveService) Export(ctx context.Context, documentID int64, sel PhotoSelector) (*Archive, error) {
	if documentID <= 0 {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return nil, notFound("find document", err)
	}
	photos := sel.resolve(doc.Photos)

	if err := os.MkdirAll(s.opts.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	f, err := os.CreateTemp(s.opts.ScratchDir, "archive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	scratch := &scratchFile{File: f}

	entries, err := s.writeZip(ctx, f, doc.Title, photos)
	if err != nil {
		_ = scratch.Close()
		s.logger.Warn("archive_failed", zap.Int64("document_id", documentID), zap.Error(err))
		return nil, err
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = scratch.Close()
		return nil, fmt.Errorf("rewind scratch file: %w", err)
	}

	s.logger.Info("archive_built",
		zap.Int64("document_id", documentID),
		zap.Int("entries", len(entries)),
		zap.Int64("size", size),
	)
	return &Archive{
		Filename: doc.Title + ".zip",
		Size:     size,
		Entries:  entries,
		Body:     scratch,
	}, nil
}

// writeZip reads content in windows of ReadConcurrency photos and writes each window
// in list order before fetching the next.
func (s *archiveService) writeZip(ctx context.Context, w io.Writer, title string, photos []model.Photo) ([]string, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	entries := make([]string, 0, len(photos))
	window := s.opts.ReadConcurrency
	for start := 0; start < len(photos); start += window {
		end := min(start+window, len(photos))
		batch := photos[start:end]
		contents := make([][]byte, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, p := range batch {
			g.Go(func() error {
				b, err := s.readContent(gctx, p)
				if err != nil {
					return err
				}
				contents[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, p := range batch {
			name := EntryName(title, start+i+1)
			fw, err := zw.CreateHeader(&zip.FileHeader{
				Name:     name,
				Method:   zip.Deflate,
				Modified: p.CreatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("create entry %s: %w", name, err)
			}
			if _, err := fw.Write(contents[i]); err != nil {
				return nil, fmt.Errorf("write entry %s: %w", name, err)
			}
			entries = append(entries, name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return entries, nil
}

func (s *archiveService) readContent(ctx context.Context, p model.Photo) ([]byte, error) {
	rc, _, err := s.store.Get(ctx, p.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: photo %d: %w", ErrStorageRead, p.ID, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: photo %d: %w", ErrStorageRead, p.ID, err)
	}
	return b, nil
}

func (s *archiveService) OpenPhoto(ctx context.Context, documentID, photoID int64) (io.ReadCloser, *model.Photo, error) {
	p, err := s.findPhoto(ctx, documentID, photoID)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, p.Image)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("content_missing", zap.Int64("photo_id", p.ID), zap.String("key", p.Image))
		}
		return nil, nil, fmt.Errorf("%w: photo %d: %w", ErrStorageRead, p.ID, err)
	}
	return rc, p, nil
}

func (s *archiveService) PhotoURL(ctx context.Context, documentID, photoID int64) (string, error) {
	p, err := s.findPhoto(ctx, documentID, photoID)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, p.Image, PhotoURLExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			return "", err
		}
		return "", fmt.Errorf("%w: photo %d: %w", ErrStorageRead, p.ID, err)
	}
	return u, nil
}

// findPhoto returns the photo only when the document owns it.
func (s *archiveService) findPhoto(ctx context.Context, documentID, photoID int64) (*model.Photo, error) {
	if documentID <= 0 || photoID <= 0 {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return nil, notFound("find document", err)
	}
	for i := range doc.Photos {
		if doc.Photos[i].ID == photoID {
			return &doc.Photos[i], nil
		}
	}
	return nil, ErrNotFound
}

// scratchFile deletes the underlying file once closed.
type scratchFile struct {
	*os.File
}

func (f *scratchFile) Close() error {
	err := f.File.Close()
	if rerr := os.Remove(f.Name()); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = rerr
	}
	return err
}
