package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photoarchive/internal/model"
	"photoarchive/internal/repository"
	"photoarchive/internal/storage"
)

// PhotoOpKind tags the variant of a PhotoOp.
type PhotoOpKind int

const (
	PhotoKeep PhotoOpKind = iota + 1
	PhotoDelete
	PhotoAdd
)

func (k PhotoOpKind) String() string {
	switch k {
	case PhotoKeep:
		return "keep"
	case PhotoDelete:
		return "delete"
	case PhotoAdd:
		return "add"
	default:
		return fmt.Sprintf("PhotoOpKind(%d)", int(k))
	}
}

// PhotoOp is one slot of an attachment submission. Keep and Delete reference an
// existing photo by PhotoID; Add carries new content.
type PhotoOp struct {
	Kind     PhotoOpKind
	PhotoID  int64
	Filename string
	Content  []byte
}

func KeepPhoto(id int64) PhotoOp   { return PhotoOp{Kind: PhotoKeep, PhotoID: id} }
func DeletePhoto(id int64) PhotoOp { return PhotoOp{Kind: PhotoDelete, PhotoID: id} }

func AddPhoto(filename string, content []byte) PhotoOp {
	return PhotoOp{Kind: PhotoAdd, Filename: filename, Content: content}
}

// ReconcileResult is the attachment set after a successful reconciliation.
type ReconcileResult struct {
	// Photos are most recently created first.
	Photos  []model.Photo `json:"photos"`
	Added   int           `json:"added"`
	Removed int           `json:"removed"`
}

type preparedOp struct {
	PhotoOp
	slot        string
	contentType string
	ext         string
}

func slotName(i int) string { return fmt.Sprintf("photos-%d", i) }

// prepareOps checks everything that does not need the database: ids are present and
// unique, and every new upload is a non-empty, decodable image.
func prepareOps(ops []PhotoOp) ([]preparedOp, error) {
	problems := map[string]string{}
	seen := make(map[int64]struct{}, len(ops))
	out := make([]preparedOp, 0, len(ops))

	for i, op := range ops {
		p := preparedOp{PhotoOp: op, slot: slotName(i)}
		switch op.Kind {
		case PhotoKeep, PhotoDelete:
			if op.PhotoID <= 0 {
				problems[p.slot] = "photo id is required"
				continue
			}
			if _, dup := seen[op.PhotoID]; dup {
				problems[p.slot] = fmt.Sprintf("photo %d is referenced more than once", op.PhotoID)
				continue
			}
			seen[op.PhotoID] = struct{}{}
		case PhotoAdd:
			ct, ext, err := inspectImage(op.Content)
			if err != nil {
				problems[p.slot] = err.Error()
				continue
			}
			p.contentType, p.ext = ct, ext
		default:
			problems[p.slot] = fmt.Sprintf("unknown operation %s", op.Kind)
			continue
		}
		out = append(out, p)
	}

	if len(problems) > 0 {
		return nil, newValidationError(problems, ErrInvalidAttachment)
	}
	return out, nil
}

// inspectImage rejects empty or undecodable content and reports the detected MIME type
// and its usual file extension.
func inspectImage(content []byte) (string, string, error) {
	if len(content) == 0 {
		return "", "", fmt.Errorf("the submitted file is empty")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return "", "", fmt.Errorf("upload a valid image: the file is either not an image or a corrupted image")
	}
	mt := mimetype.Detect(content)
	return mt.String(), mt.Extension(), nil
}

// reconcileTx applies prepared ops to doc inside tx. Ownership is checked before any
// mutation and deletions run before additions. Content keys written or released are
// recorded in ch for the caller to settle once the transaction ends.
func (s *documentService) reconcileTx(ctx context.Context, tx repository.DocumentTx, doc *model.Document, ops []preparedOp, ch *contentChanges) (*ReconcileResult, error) {
	current, err := tx.ListPhotos(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	owned := make(map[int64]model.Photo, len(current))
	for _, p := range current {
		owned[p.ID] = p
	}

	problems := map[string]string{}
	for _, op := range ops {
		if op.Kind == PhotoAdd {
			continue
		}
		if _, ok := owned[op.PhotoID]; !ok {
			problems[op.slot] = fmt.Sprintf("photo %d does not belong to this document", op.PhotoID)
		}
	}
	if len(problems) > 0 {
		return nil, newValidationError(problems, ErrInvalidAttachment)
	}

	res := &ReconcileResult{}
	for _, op := range ops {
		if op.Kind != PhotoDelete {
			continue
		}
		if err := removePhoto(ctx, tx, owned[op.PhotoID], ch); err != nil {
			return nil, err
		}
		res.Removed++
	}

	for _, op := range ops {
		if op.Kind != PhotoAdd {
			continue
		}
		key := path.Join("photos", uuid.NewString()+op.ext)
		info, err := s.store.Put(ctx, key, bytes.NewReader(op.Content), storage.PutObjectOptions{
			Size:        int64(len(op.Content)),
			ContentType: op.contentType,
			Metadata: map[string]string{
				"original-filename": op.Filename,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: put %s: %w", ErrStorageWrite, key, err)
		}
		ch.written = append(ch.written, key)

		size := info.Size
		if size <= 0 {
			size = int64(len(op.Content))
		}
		if _, err := tx.CreatePhoto(ctx, &model.Photo{
			DocumentID:  doc.ID,
			Image:       key,
			ContentType: op.contentType,
			Size:        size,
			CreatedAt:   s.now(),
		}); err != nil {
			return nil, fmt.Errorf("create photo: %w", err)
		}
		res.Added++
	}

	res.Photos, err = tx.ListPhotos(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return res, nil
}

// removePhoto deletes the record and releases its content, which is removed only after
// the transaction commits.
func removePhoto(ctx context.Context, tx repository.DocumentTx, p model.Photo, ch *contentChanges) error {
	if err := tx.DeletePhoto(ctx, p.ID); err != nil {
		return fmt.Errorf("delete photo %d: %w", p.ID, err)
	}
	ch.released = append(ch.released, p.Image)
	return nil
}

// contentChanges tracks the content keys a transaction touches.
type contentChanges struct {
	// written is new content, removed again if the transaction does not commit.
	written []string
	// released belongs to deleted records, removed once the transaction commits.
	released []string
}

// settle removes whichever side of ch the outcome of the transaction has orphaned.
// Content already gone counts as deleted.
func (s *documentService) settle(ctx context.Context, ch *contentChanges, txErr error) {
	keys := ch.released
	if txErr != nil {
		keys = ch.written
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("orphan_content", zap.String("key", key), zap.Error(fmt.Errorf("%w: %w", ErrStorageWrite, err)))
		}
	}
}
