package dbutil

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Finalize rebinds the '?' placeholders produced by gendry to postgres '$n'.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
