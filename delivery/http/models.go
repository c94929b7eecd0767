package http

import (
	"time"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
)

// LoginRequest is the credential payload for the login endpoint
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// AccountResponse is the API representation of a mirrored account
type AccountResponse struct {
	ID                    int64   `json:"id"`
	AcctID                string  `json:"acct_id"`
	AcctType              *string `json:"acct_type"`
	ContractSalesPrice    *string `json:"contract_sales_price"`
	ContractDate          *string `json:"contract_date"`
	SalesGroupPersonID    *string `json:"sales_group_person_id"`
	CollateralStockNumber *string `json:"collateral_stock_number"`
	CollateralYearModel   *string `json:"collateral_year_model"`
	CollateralMake        *string `json:"collateral_make"`
	CollateralModel       *string `json:"collateral_model"`
	BorrowerFirstName     *string `json:"borrower_first_name"`
	BorrowerLastName      *string `json:"borrower_last_name"`
	CreatedAt             string  `json:"created_at"`
}

// AccountListResponse wraps the account collection
type AccountListResponse struct {
	Count    int                `json:"count"`
	Accounts []*AccountResponse `json:"accounts"`
}

// SyncResponse reports the outcome of a manual sync trigger
type SyncResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// toAccountResponse maps a domain account to its API representation
func toAccountResponse(account *entity.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:                    account.ID,
		AcctID:                account.AcctID,
		AcctType:              account.AcctType,
		SalesGroupPersonID:    account.SalesGroupPersonID,
		CollateralStockNumber: account.CollateralStockNumber,
		CollateralYearModel:   account.CollateralYearModel,
		CollateralMake:        account.CollateralMake,
		CollateralModel:       account.CollateralModel,
		BorrowerFirstName:     account.BorrowerFirstName,
		BorrowerLastName:      account.BorrowerLastName,
		CreatedAt:             account.CreatedAt.Format(time.RFC3339),
	}

	if account.ContractSalesPrice.Valid {
		price := account.ContractSalesPrice.Decimal.String()
		resp.ContractSalesPrice = &price
	}
	if account.ContractDate != nil {
		date := account.ContractDate.Format("2006-01-02")
		resp.ContractDate = &date
	}

	return resp
}

func toAccountListResponse(accounts []*entity.Account) *AccountListResponse {
	out := make([]*AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountResponse(account))
	}
	return &AccountListResponse{
		Count:    len(out),
		Accounts: out,
	}
}
