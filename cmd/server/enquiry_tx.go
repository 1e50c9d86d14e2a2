package main

import (
	"context"
	"database/sql"
	"time"

	enquiryservice "idmcore/internal/enquiry/service"
	enquirystore "idmcore/internal/enquiry/store"
	identitystore "idmcore/internal/identity/store"
	"idmcore/internal/platform/database"
	dErrors "idmcore/pkg/domain-errors"
)

const defaultEnquiryTxTimeout = 5 * time.Second

// enquiryPostgresTx binds the response and identity stores to one SQL
// transaction, so accepting a response either lands completely or not at all.
type enquiryPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newEnquiryPostgresTx(db *sql.DB) *enquiryPostgresTx {
	return &enquiryPostgresTx{db: db, timeout: defaultEnquiryTxTimeout}
}

func (t *enquiryPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores enquiryservice.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var fnErr error
	err := database.RunInTx(ctx, t.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		fnErr = fn(ctx, enquiryservice.Stores{
			Responses: enquirystore.NewPostgresTx(tx),
			Entities:  identitystore.NewPostgresTx(tx),
		})
		return fnErr
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "enquiry transaction failed")
	}
	return nil
}
