package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Article is a curated news entry owned by an admin.
type Article struct {
	ID        int64   `json:"articleID"`
	AdminID   int64   `json:"adminID"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	Link      string  `json:"link"`
	ImageLink *string `json:"imageLink"`
}

// Image returns the image URL, or "" when the article has none.
func (a Article) Image() string {
	if a.ImageLink == nil {
		return ""
	}
	return *a.ImageLink
}

// ArticleInput is the payload accepted on create and update.
// Pointers distinguish a missing field from its zero value.
type ArticleInput struct {
	AdminID   *int64  `json:"adminID" validate:"required"`
	Title     *string `json:"title" validate:"required"`
	Summary   *string `json:"summary" validate:"required"`
	Link      *string `json:"link" validate:"required"`
	ImageLink *string `json:"imageLink"`
}

// FieldError reports a required field absent from an ArticleInput.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field required: %s", e.Field)
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that every required field is present.
// Empty strings are accepted.
func (in ArticleInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &FieldError{Field: verrs[0].Field()}
	}
	return fmt.Errorf("validate article: %w", err)
}

// Apply overwrites every mutable field of a. The input must be valid.
func (in ArticleInput) Apply(a *Article) {
	a.AdminID = *in.AdminID
	a.Title = *in.Title
	a.Summary = *in.Summary
	a.Link = *in.Link
	a.ImageLink = nil
	if in.ImageLink != nil {
		img := *in.ImageLink
		a.ImageLink = &img
	}
}

// NewArticle builds an unsaved Article from a valid input.
func NewArticle(in ArticleInput) Article {
	var a Article
	in.Apply(&a)
	return a
}

// StaleImage returns the image URL that a replacement left behind,
// or "" when the image is unchanged or there was none.
func StaleImage(previous, updated Article) string {
	old := previous.Image()
	if old == "" || old == updated.Image() {
		return ""
	}
	return old
}
