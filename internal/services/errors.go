package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}

// conflictOr maps a uniqueness violation to a ConflictError carrying message
// and returns every other error unchanged.
func conflictOr(err error, message string) error {
	if isUniqueConstraintError(err) {
		return apperrors.NewConflict(message).WithInternal(err)
	}
	return err
}

// passThrough reports whether err is already a domain error that should reach
// the caller without extra wrapping.
func passThrough(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
