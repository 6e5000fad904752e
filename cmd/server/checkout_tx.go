package main

import (
	"context"
	"database/sql"
	"time"

	"aerostore/internal/checkout"
	dErrors "aerostore/pkg/domain-errors"
)

const defaultCheckoutTxTimeout = 5 * time.Second

// checkoutPostgresTx runs checkout and admin review transactions against
// postgres. Every RunInTx call gets one BeginTx/Commit pair; fn errors roll
// the whole transaction back.
type checkoutPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCheckoutPostgresTx(db *sql.DB, timeout time.Duration) *checkoutPostgresTx {
	return &checkoutPostgresTx{db: db, timeout: timeout}
}

func (t *checkoutPostgresTx) RunInTx(ctx context.Context, fn func(store checkout.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultCheckoutTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(checkout.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
