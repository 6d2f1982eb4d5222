package models

import "github.com/shopspring/decimal"

// Account represents a correntista: a bank account with its current balance.
// Accounts are created administratively; the ledger only ever touches Balance.
type Account struct {
	ID      int64           // unique account identifier
	UserID  int64           // identifier of the user that owns this account
	Name    string          // display name of the account holder
	Balance decimal.Decimal // current balance, never negative after a commit
}

// AccountDelta is a signed balance change to apply to one account as part of
// an atomic commit. Positive credits the account, negative debits it.
type AccountDelta struct {
	AccountID int64
	Amount    decimal.Decimal
}
