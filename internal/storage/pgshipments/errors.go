package pgshipments

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("shipment not found")
	// ErrDuplicateKey - правка записи упёрлась в натуральный ключ другой записи.
	ErrDuplicateKey = errors.New("natural key already used by another shipment")
)

const (
	codeUndefinedTable  = "42P01"
	codeUniqueViolation = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUndefinedTable - таблицы ещё нет (схема не инициализирована).
func IsUndefinedTable(err error) bool {
	return pgCode(err) == codeUndefinedTable
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}
