package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// WithSnapshot runs fn inside a read-only REPEATABLE READ transaction, so
// every query fn issues sees the same committed state. The transaction is
// always rolled back; nothing fn does can be written.
func (db *DB) WithSnapshot(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}

	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && err == nil {
			err = fmt.Errorf("failed to close snapshot: %w", rbErr)
		}
	}()

	return fn(tx)
}
