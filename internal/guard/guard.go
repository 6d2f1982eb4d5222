package guard

import (
	"context"

	"github.com/contacorrente/ledger-service/internal/interfaces"
	"github.com/contacorrente/ledger-service/internal/ledger"
)

// Guard confirms that a caller owns an account before the ledger is invoked.
// It is a pure read: no side effects, no state.
type Guard struct {
	store interfaces.LedgerStore
}

// New creates a Guard backed by the given store.
func New(store interfaces.LedgerStore) *Guard {
	return &Guard{store: store}
}

// Authorize returns nil when callerUserID owns the account,
// ledger.ErrUnauthorized when it belongs to someone else, and
// ledger.ErrAccountNotFound when the account does not exist.
func (g *Guard) Authorize(ctx context.Context, accountID, callerUserID int64) error {
	account, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != callerUserID {
		return ledger.ErrUnauthorized
	}
	return nil
}
