package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents one loan account mirrored from the IDMS system.
// AcctID is the natural key: exactly one row may exist per AcctID, and a
// mirrored account is never updated afterwards (append-only ingestion).
type Account struct {
	ID                 int64               `db:"id" json:"id"`
	ContractSalesPrice decimal.NullDecimal `db:"contract_sales_price" json:"contract_sales_price"`
	AcctType           *string             `db:"acct_type" json:"acct_type"`
	SalesGroupPersonID *string             `db:"sales_group_person1_id" json:"sales_group_person1_id"`
	ContractDate       *time.Time          `db:"contract_date" json:"contract_date"`

	CollateralStockNumber *string `db:"collateral_stock_number" json:"collateral_stock_number"`
	CollateralYearModel   *string `db:"collateral_year_model" json:"collateral_year_model"`
	CollateralMake        *string `db:"collateral_make" json:"collateral_make"`
	CollateralModel       *string `db:"collateral_model" json:"collateral_model"`

	BorrowerFirstName *string `db:"borrower1_first_name" json:"borrower1_first_name"`
	BorrowerLastName  *string `db:"borrower1_last_name" json:"borrower1_last_name"`

	AcctID string `db:"acct_id" json:"acct_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasAcctID reports whether the account carries a usable natural key.
// Empty and missing identifiers are treated the same.
func (a *Account) HasAcctID() bool {
	return a.AcctID != ""
}
