// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"appx/internal/database"
	"appx/internal/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so s matches literally. Use with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// translateError maps driver errors to the application error taxonomy.
// A foreign key violation means the referenced resource does not exist.
func translateError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound), database.IsForeignKeyViolation(err):
		return models.NewNotFoundError(resource, id)
	case database.IsUniqueViolation(err):
		return models.NewConflictError(resource + " already exists")
	default:
		return models.NewInternalError(err)
	}
}
