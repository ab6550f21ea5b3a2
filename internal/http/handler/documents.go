package handler

import (
	"errors"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"photoarchive/internal/http/middleware"
	"photoarchive/internal/model"
	"photoarchive/internal/service"
	"photoarchive/internal/storage"
)

func parseID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func identity(c *fiber.Ctx) (model.Identity, error) {
	id, ok := middleware.IdentityFromCtx(c)
	if !ok {
		return model.Identity{}, fiber.ErrUnauthorized
	}
	return id, nil
}

// ListDocuments returns one page of documents.
//
// @Summary List documents
// @Tags documents
// @Produce json
// @Param q query string false "substring of title or description"
// @Param from query string false "earliest doc_date"
// @Param to query string false "latest doc_date, defaults to now"
// @Param page query int false "1-based page number"
// @Success 200 {object} service.DocumentPage
// @Failure 404 {object} errorPayload
// @Failure 422 {object} validationPayload
// @Security BearerAuth
// @Router /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := service.DocumentFilter{Query: strings.TrimSpace(c.Query("q"))}
		problems := map[string]string{}

		for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
			raw := strings.TrimSpace(c.Query(key))
			if raw == "" {
				continue
			}
			t, err := service.ParseDate(raw)
			if err != nil {
				problems[key] = "enter a valid date/time"
				continue
			}
			*dst = &t
		}
		if len(problems) > 0 {
			return writeValidationError(c, problems, nil)
		}

		page := 1
		if raw := c.Query("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return writeError(c, fiber.StatusNotFound, "INVALID_PAGE", "page is not a number")
			}
			page = n
		}

		res, err := docSvc.List(c.UserContext(), f, page)
		if err != nil {
			return writeServiceError(c, err, nil)
		}
		return c.JSON(res)
	}
}

// GetDocument returns one document with its photos.
//
// @Summary Get document
// @Tags documents
// @Produce json
// @Param id path int true "document id"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err, nil)
		}
		return c.JSON(doc)
	}
}

// CreateDocument stores a new document authored by the caller, with optional photos.
//
// @Summary Create document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "title"
// @Param description formData string false "description"
// @Param doc_date formData string true "date of the original document"
// @Param images formData file false "photos to attach"
// @Success 201 {object} model.Document
// @Failure 422 {object} validationPayload
// @Security BearerAuth
// @Router /documents [post]
func CreateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who, err := identity(c)
		if err != nil {
			return err
		}

		in, ops, problems, err := bindDocument(c)
		if err != nil {
			return err
		}
		if problems != nil {
			return writeValidationError(c, problems, &in)
		}

		doc, err := docSvc.Create(c.UserContext(), in, who, ops...)
		if err != nil {
			return writeServiceError(c, err, &in)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// UpdateDocument edits a document and reconciles its photos. Only the author or a
// privileged identity may do so.
//
// @Summary Update document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "document id"
// @Param title formData string true "title"
// @Param description formData string false "description"
// @Param doc_date formData string true "date of the original document"
// @Param photos-TOTAL_FORMS formData int false "number of photo slots"
// @Success 200 {object} model.Document
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 422 {object} validationPayload
// @Security BearerAuth
// @Router /documents/{id} [put]
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if ok, err := authorize(c, docSvc, id); !ok {
			return err
		}

		in, ops, problems, err := bindDocument(c)
		if err != nil {
			return err
		}
		if problems != nil {
			return writeValidationError(c, problems, &in)
		}

		doc, err := docSvc.Update(c.UserContext(), id, in, ops...)
		if err != nil {
			return writeServiceError(c, err, &in)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes a document with its photos and their content.
//
// @Summary Delete document
// @Tags documents
// @Param id path int true "document id"
// @Success 204
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if ok, err := authorize(c, docSvc, id); !ok {
			return err
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err, nil)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetPhoto redirects to a direct download URL when the content store can mint one and
// streams the content otherwise.
//
// @Summary Get photo content
// @Tags photos
// @Produce octet-stream
// @Param id path int true "document id"
// @Param photoId path int true "photo id"
// @Success 200 {file} binary
// @Success 307
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/photos/{photoId} [get]
func GetPhoto(archiveSvc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		photoID, pok := parseID(c, "photoId")
		if !ok || !pok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		u, err := archiveSvc.PhotoURL(c.UserContext(), id, photoID)
		switch {
		case err == nil:
			return c.Redirect(u, fiber.StatusTemporaryRedirect)
		case !errors.Is(err, storage.ErrPresignUnsupported):
			return writeServiceError(c, err, nil)
		}

		rc, p, err := archiveSvc.OpenPhoto(c.UserContext(), id, photoID)
		if err != nil {
			return writeServiceError(c, err, nil)
		}
		if p.ContentType != "" {
			c.Set(fiber.HeaderContentType, p.ContentType)
		}
		size := -1
		if p.Size > 0 {
			size = int(p.Size)
		}
		return c.SendStream(rc, size)
	}
}

// DownloadArchive streams a zip of a document's photos. Without photoId, or with 0,
// every photo is included.
//
// @Summary Download photos as zip
// @Tags photos
// @Produce application/zip
// @Param id path int true "document id"
// @Param photoId path int false "single photo id"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/download/{photoId} [get]
func DownloadArchive(archiveSvc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		sel := service.AllPhotos()
		if raw := c.Params("photoId"); raw != "" {
			photoID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || photoID < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
			}
			sel = service.SinglePhoto(photoID)
		}

		a, err := archiveSvc.Export(c.UserContext(), id, sel)
		if err != nil {
			return writeServiceError(c, err, nil)
		}

		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set(fiber.HeaderContentDisposition, contentDisposition(a.Filename))
		// fasthttp closes the body once sent, which removes the scratch file
		return c.SendStream(a.Body, int(a.Size))
	}
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// authorize loads the document and checks that the caller may modify it. When it
// reports false the response has already been decided.
func authorize(c *fiber.Ctx, docSvc service.DocumentService, id int64) (bool, error) {
	who, err := identity(c)
	if err != nil {
		return false, err
	}
	doc, err := docSvc.Get(c.UserContext(), id)
	if err != nil {
		return false, writeServiceError(c, err, nil)
	}
	if !who.CanModify(doc) {
		return false, writeServiceError(c, service.ErrForbidden, nil)
	}
	return true, nil
}

// bindDocument reads the document fields and photo slots. Malformed photo slots come
// back as field problems.
func bindDocument(c *fiber.Ctx) (service.DocumentInput, []service.PhotoOp, map[string]string, error) {
	var in service.DocumentInput
	if err := c.BodyParser(&in); err != nil {
		return in, nil, nil, fiber.ErrBadRequest
	}

	ops, problems, err := photoOpsFromForm(multipartForm(c))
	if err != nil {
		return in, nil, nil, err
	}
	return in, ops, problems, nil
}
