package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DocumentInput carries the user-editable fields of a document as submitted.
type DocumentInput struct {
	Title       string `json:"title" form:"title" validate:"required,max=256"`
	Description string `json:"description" form:"description"`
	DocDate     string `json:"doc_date" form:"doc_date" validate:"required"`
	// AuthorID is accepted for form compatibility and never used.
	AuthorID string `json:"author,omitempty" form:"author" validate:"-"`
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fields holds the validated document fields.
type fields struct {
	title       string
	description string
	docDate     time.Time
}

func (in DocumentInput) validate() (fields, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.DocDate = strings.TrimSpace(in.DocDate)

	problems := map[string]string{}
	if err := structValidator.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fields{}, err
		}
		for _, fe := range verrs {
			problems[fe.Field()] = fieldMessage(fe)
		}
	}

	var docDate time.Time
	if _, bad := problems["doc_date"]; !bad {
		d, err := ParseDate(in.DocDate)
		if err != nil {
			problems["doc_date"] = "enter a valid date/time"
		}
		docDate = d
	}

	if len(problems) > 0 {
		return fields{}, newValidationError(problems, nil)
	}
	return fields{title: in.Title, description: in.Description, docDate: docDate}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, zone-less date-times and plain dates.
// Values without a zone are read as UTC; a plain date is midnight of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
