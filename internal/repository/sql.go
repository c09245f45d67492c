package repository

import (
	"database/sql"

	"github.com/pkg/errors"
)

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
