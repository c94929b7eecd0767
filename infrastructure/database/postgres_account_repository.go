package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
)

const accountSchema = `
	CREATE TABLE IF NOT EXISTS account (
		id                       BIGSERIAL PRIMARY KEY,
		contract_sales_price     NUMERIC(19, 4),
		acct_type                TEXT,
		sales_group_person1_id   TEXT,
		contract_date            DATE,
		collateral_stock_number  TEXT,
		collateral_year_model    TEXT,
		collateral_make          TEXT,
		collateral_model         TEXT,
		borrower1_first_name     TEXT,
		borrower1_last_name      TEXT,
		acct_id                  TEXT NOT NULL UNIQUE,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_acct_id ON account (acct_id);`

// A conflicting insert must not abort the batch: a raw unique-violation would
// poison the open transaction (SQLSTATE 25P02 on every later statement), so the
// conflict is absorbed server-side and detected through the affected row count.
const insertAccountQuery = `
	INSERT INTO account (
		contract_sales_price, acct_type, sales_group_person1_id, contract_date,
		collateral_stock_number, collateral_year_model, collateral_make, collateral_model,
		borrower1_first_name, borrower1_last_name, acct_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (acct_id) DO NOTHING`

const selectAccountColumns = `
	id, contract_sales_price, acct_type, sales_group_person1_id, contract_date,
	collateral_stock_number, collateral_year_model, collateral_make, collateral_model,
	borrower1_first_name, borrower1_last_name, acct_id, created_at`

// PostgresAccountRepository implements repository.AccountRepository using
// PostgreSQL.
type PostgresAccountRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresAccountRepository creates a new PostgreSQL account repository.
func NewPostgresAccountRepository(db *sqlx.DB, logger *zap.Logger) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the account table and index if they do not exist.
func (r *PostgresAccountRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, accountSchema); err != nil {
		return &repository.StorageError{Op: "ensure account schema", Err: err}
	}
	return nil
}

// ExistsByAcctID reports whether an account with the given acct_id exists.
func (r *PostgresAccountRepository) ExistsByAcctID(ctx context.Context, acctID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM account WHERE acct_id = $1)", acctID)
	if err != nil {
		return false, &repository.StorageError{Op: "existence check", Err: err}
	}
	return exists, nil
}

// ListAll returns every mirrored account in insertion order.
func (r *PostgresAccountRepository) ListAll(ctx context.Context) ([]*entity.Account, error) {
	accounts := make([]*entity.Account, 0)
	err := r.db.SelectContext(ctx, &accounts,
		"SELECT "+selectAccountColumns+" FROM account ORDER BY id")
	if err != nil {
		r.logger.Error("Failed to list accounts", zap.Error(err))
		return nil, &repository.StorageError{Op: "list accounts", Err: err}
	}
	return accounts, nil
}

// CountAll returns the number of mirrored accounts.
func (r *PostgresAccountRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM account"); err != nil {
		return 0, &repository.StorageError{Op: "count accounts", Err: err}
	}
	return count, nil
}

// NewBatch opens a batched write session backed by a database transaction.
// Flush commits the open transaction and starts a new one, so rows written
// before a flush stay durable even if a later write fails.
func (r *PostgresAccountRepository) NewBatch(ctx context.Context) (repository.AccountBatch, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &repository.StorageError{Op: "begin batch", Err: err}
	}
	return &accountBatch{repo: r, tx: tx}, nil
}

// accountBatch implements repository.AccountBatch on a live transaction.
type accountBatch struct {
	repo *PostgresAccountRepository
	tx   *sqlx.Tx
}

func (b *accountBatch) ExistsByAcctID(ctx context.Context, acctID string) (bool, error) {
	var exists bool
	err := b.tx.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM account WHERE acct_id = $1)", acctID)
	if err != nil {
		return false, &repository.StorageError{Op: "existence check", Err: err}
	}
	return exists, nil
}

func (b *accountBatch) Insert(ctx context.Context, account *entity.Account) error {
	result, err := b.tx.ExecContext(ctx, insertAccountQuery,
		account.ContractSalesPrice, account.AcctType, account.SalesGroupPersonID, account.ContractDate,
		account.CollateralStockNumber, account.CollateralYearModel, account.CollateralMake, account.CollateralModel,
		account.BorrowerFirstName, account.BorrowerLastName, account.AcctID,
	)
	if err != nil {
		b.repo.logger.Error("Failed to insert account",
			zap.String("acct_id", account.AcctID), zap.Error(err))
		return &repository.StorageError{Op: "insert account", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &repository.StorageError{Op: "insert account", Err: err}
	}
	if affected == 0 {
		// A concurrent writer persisted this acct_id first. The transaction
		// stays healthy, so the batch keeps going.
		return repository.ErrDuplicateAccount
	}
	return nil
}

// Flush commits the current transaction and opens a new one for the writes
// that follow.
func (b *accountBatch) Flush(ctx context.Context) error {
	if err := b.tx.Commit(); err != nil {
		return &repository.StorageError{Op: "flush batch", Err: err}
	}
	tx, err := b.repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return &repository.StorageError{Op: "reopen batch", Err: err}
	}
	b.tx = tx
	return nil
}

// Rollback discards writes not yet flushed. Calling it after a final Flush is
// a no-op.
func (b *accountBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errors.Wrap(err, "rollback batch")
	}
	return nil
}
