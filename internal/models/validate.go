package models

import (
	"chatgraph/backend/internal/relation"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// One validator for the package; it caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// check runs the struct tags of v and reports every failing field as one ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%v: %w", err, relation.ErrValidation)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s: %w", strings.Join(fields, ", "), relation.ErrValidation)
}

// UserParams are the attributes a User is created with.
type UserParams struct {
	Phone    string `validate:"required,startswith=+,numeric,max=16"`
	Username string `validate:"required,max=32"`
}

// ChatParams are the attributes a Chat is created with. ID and CreatedAt are
// generated when empty; Cap falls back to the group default.
type ChatParams struct {
	ID          string `validate:"omitempty,max=64"`
	Name        string `validate:"required,max=64"`
	Description string `validate:"max=255"`
	Cap         int    `validate:"omitempty,min=2"`
	CreatedAt   time.Time
}

// FolderParams are the attributes a Folder is created with.
type FolderParams struct {
	ID   string `validate:"omitempty,max=64"`
	Name string `validate:"required,max=32"`
}

// PackParams are the attributes a Stickerpack is created with.
type PackParams struct {
	ID      string `validate:"omitempty,max=64"`
	Name    string `validate:"required,max=64"`
	Premium bool
}

// StickerParams are the attributes a Sticker is created with.
type StickerParams struct {
	ID      string `validate:"omitempty,max=64"`
	Code    string `validate:"required,max=16"`
	FileURL string `validate:"omitempty,url"`
}
