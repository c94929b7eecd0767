package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/service"
)

// idmsDateLayout is the fixed timestamp format used by IDMS. Only the date
// part is retained on the account.
const idmsDateLayout = "01/02/2006 03:04:05 PM"

// ParsePrice parses a raw sales price into a nullable decimal. Any parse
// failure yields the null value, never an error.
func ParsePrice(raw string) decimal.NullDecimal {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: price, Valid: true}
}

// ParseDate parses a raw IDMS timestamp and keeps its date part. Any parse
// failure yields nil, never an error.
func ParseDate(raw string) *time.Time {
	parsed, err := time.Parse(idmsDateLayout, raw)
	if err != nil {
		return nil
	}
	date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return &date
}

// NormalizeRow maps one raw IDMS row to a canonical account. Price and date
// fields degrade to null on malformed input; everything else is copied
// verbatim, with empty strings becoming null.
func NormalizeRow(row service.AccountRow) *entity.Account {
	return &entity.Account{
		ContractSalesPrice:    ParsePrice(row.ContractSalesPrice),
		AcctType:              nullable(row.AcctType),
		SalesGroupPersonID:    nullable(row.SalesGroupPerson1ID),
		ContractDate:          ParseDate(row.ContractDate),
		CollateralStockNumber: nullable(row.CollateralStockNumber),
		CollateralYearModel:   nullable(row.CollateralYearModel),
		CollateralMake:        nullable(row.CollateralMake),
		CollateralModel:       nullable(row.CollateralModel),
		BorrowerFirstName:     nullable(row.Borrower1FirstName),
		BorrowerLastName:      nullable(row.Borrower1LastName),
		AcctID:                row.AcctID,
	}
}

// DedupeByAcctID keeps the first account observed per AcctID, preserving the
// relative order of first occurrences.
func DedupeByAcctID(accounts []*entity.Account) []*entity.Account {
	seen := make(map[string]struct{}, len(accounts))
	deduped := make([]*entity.Account, 0, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[account.AcctID]; ok {
			continue
		}
		seen[account.AcctID] = struct{}{}
		deduped = append(deduped, account)
	}
	return deduped
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
