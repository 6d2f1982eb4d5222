package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tells whether a movement credits or debits an account.
type MovementKind string

const (
	Credit MovementKind = "C"
	Debit  MovementKind = "D"
)

// Movement is a single recorded balance-affecting event (movimentação).
// Movements are written exactly once per committed operation leg and are
// immutable afterwards; the log exposes no update or delete.
type Movement struct {
	ID             int64           // assigned by the store, monotonically increasing
	OperationID    string          // groups the legs of one ledger operation
	Kind           MovementKind    // Credit or Debit
	AccountID      int64           // account the movement belongs to
	Amount         decimal.Decimal // always positive; Kind carries the sign
	CreatedAt      time.Time       // timestamp of the operation
	Description    string          // free-text label, e.g. "Depósito em conta"
	CounterpartyID *int64          // other account of a transfer, nil otherwise
}

// Signed returns the amount with the sign implied by the movement kind.
func (m Movement) Signed() decimal.Decimal {
	if m.Kind == Debit {
		return m.Amount.Neg()
	}
	return m.Amount
}
