package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"photoarchive/internal/service"
)

const (
	photoPrefix     = "photos"
	extraImagesKey  = "images"
	totalFormsField = photoPrefix + "-TOTAL_FORMS"
)

// photoOpsFromForm reads the photo slots of a multipart submission.
//
// Slot i uses photos-i-id, photos-i-DELETE and the file photos-i-image; the number of
// slots is photos-TOTAL_FORMS. Blank slots are skipped. A slot that names an existing
// photo and also carries a file replaces it (delete plus add). Files under "images" are
// added as well. Problems are returned as field messages.
func photoOpsFromForm(form *multipart.Form) ([]service.PhotoOp, map[string]string, error) {
	if form == nil {
		return nil, nil, nil
	}

	problems := map[string]string{}
	var ops []service.PhotoOp

	total := 0
	if raw := firstValue(form, totalFormsField); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problems[totalFormsField] = "must be a non-negative integer"
		} else {
			total = n
		}
	}

	for i := 0; i < total; i++ {
		prefix := fmt.Sprintf("%s-%d-", photoPrefix, i)
		rawID := firstValue(form, prefix+"id")
		del := isTruthy(firstValue(form, prefix+"DELETE"))
		fh := firstFile(form, prefix+"image")

		var id int64
		if rawID != "" {
			v, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil || v <= 0 {
				problems[prefix+"id"] = "select a valid photo"
				continue
			}
			id = v
		}

		switch {
		case id > 0 && del:
			ops = append(ops, service.DeletePhoto(id))
		case id > 0 && fh != nil:
			content, err := readFile(fh)
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, service.DeletePhoto(id), service.AddPhoto(fh.Filename, content))
		case id > 0:
			ops = append(ops, service.KeepPhoto(id))
		case fh != nil && !del:
			content, err := readFile(fh)
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, service.AddPhoto(fh.Filename, content))
		}
	}

	for _, fh := range form.File[extraImagesKey] {
		content, err := readFile(fh)
		if err != nil {
			return nil, nil, err
		}
		ops = append(ops, service.AddPhoto(fh.Filename, content))
	}

	if len(problems) > 0 {
		return nil, problems, nil
	}
	return ops, nil, nil
}

// multipartForm returns nil when the request is not multipart.
func multipartForm(c *fiber.Ctx) *multipart.Form {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form
}

func firstValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func firstFile(form *multipart.Form, key string) *multipart.FileHeader {
	if f := form.File[key]; len(f) > 0 && f[0].Filename != "" {
		return f[0]
	}
	return nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
