package service

import (
	"context"
	"fmt"
)

// AccountRow is one raw account record as returned by the IDMS account list
// endpoint. Every field arrives as a string; normalization happens later.
type AccountRow struct {
	ContractSalesPrice    string `json:"ContractSalesPrice"`
	AcctType              string `json:"AcctType"`
	SalesGroupPerson1ID   string `json:"SalesGroupPerson1ID"`
	ContractDate          string `json:"ContractDate"`
	CollateralStockNumber string `json:"CollateralStockNumber"`
	CollateralYearModel   string `json:"CollateralYearModel"`
	CollateralMake        string `json:"CollateralMake"`
	CollateralModel       string `json:"CollateralModel"`
	Borrower1FirstName    string `json:"Borrower1FirstName"`
	Borrower1LastName     string `json:"Borrower1LastName"`
	AcctID                string `json:"AcctID"`
}

// AccountSource retrieves loan accounts from the external IDMS system.
// Implementations keep no state between calls; a token obtained during
// FetchAccounts is scoped to that single call.
type AccountSource interface {
	// Authenticate obtains a short-lived authorization token.
	Authenticate(ctx context.Context) (string, error)

	// FetchAccounts authenticates and retrieves the full account list.
	FetchAccounts(ctx context.Context) ([]AccountRow, error)
}

// AuthenticationError indicates the IDMS token request failed: non-success
// status, empty token, or a transport failure.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("idms authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("idms authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FetchError indicates the IDMS account list request failed: non-success
// status or a transport failure.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("idms account list fetch failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("idms account list fetch failed: %s", e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
