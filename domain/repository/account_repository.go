package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
)

// ErrDuplicateAccount is returned by AccountBatch.Insert when a row with the
// same acct_id already exists. The unique constraint is the last line of
// defense against cross-process duplicate inserts; callers treat this as
// "already exists" and skip the row.
var ErrDuplicateAccount = errors.New("account already exists")

// AccountRepository provides access to mirrored loan accounts.
type AccountRepository interface {
	// ExistsByAcctID reports whether an account with the given natural key
	// has already been persisted.
	ExistsByAcctID(ctx context.Context, acctID string) (bool, error)

	// ListAll returns every mirrored account in insertion order.
	ListAll(ctx context.Context) ([]*entity.Account, error)

	// CountAll returns the number of mirrored accounts.
	CountAll(ctx context.Context) (int64, error)

	// NewBatch opens a batched write session for the sync writer.
	NewBatch(ctx context.Context) (AccountBatch, error)
}

// AccountBatch is a write session with explicit flush boundaries. Writes
// become durable on Flush; Rollback discards only writes not yet flushed.
// Insert reporting ErrDuplicateAccount must leave the session usable: the
// caller skips the row and continues with the same batch.
type AccountBatch interface {
	ExistsByAcctID(ctx context.Context, acctID string) (bool, error)
	Insert(ctx context.Context, account *entity.Account) error
	Flush(ctx context.Context) error
	Rollback() error
}

// StorageError wraps a failure of the durable store. The sync pipeline aborts
// the cycle on a StorageError; rows already flushed stay persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
