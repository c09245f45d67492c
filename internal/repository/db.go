package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type txContextKey string

const txKey txContextKey = "trx"

// DB wraps a sqlx handle and carries an open transaction through the context.
type DB struct {
	db *sqlx.DB
}

func NewDB(db *sqlx.DB) *DB {
	return &DB{db: db}
}

func (d *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}

// conn returns the transaction bound to ctx, or the pool.
func (d *DB) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return tx
	}
	return d.db
}
