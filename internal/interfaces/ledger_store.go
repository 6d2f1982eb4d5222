package interfaces

import (
	"context"

	"github.com/contacorrente/ledger-service/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerStore is the storage contract for accounts and their movement log.
// Commit is the single mutation entry point: every balance change goes
// through it together with the movements that explain it, as one atomic unit.
type LedgerStore interface {
	// GetAccount returns the account or ledger.ErrAccountNotFound.
	GetAccount(ctx context.Context, accountID int64) (models.Account, error)

	// GetBalance returns the current balance or ledger.ErrAccountNotFound.
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)

	// Commit applies the balance deltas and appends the movements in a single
	// transaction. If any delta would drive a balance negative the whole
	// commit fails with ledger.ErrInsufficientFunds and no state changes.
	// The returned movements carry their store-assigned identifiers.
	Commit(ctx context.Context, deltas []models.AccountDelta, movements []models.Movement) ([]models.Movement, error)

	// History returns the account's movements, most recent first.
	History(ctx context.Context, accountID int64) ([]models.Movement, error)
}
