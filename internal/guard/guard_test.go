package guard_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/contacorrente/ledger-service/internal/guard"
	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
	"github.com/contacorrente/ledger-service/internal/storage/memory"
)

func TestAuthorize(t *testing.T) {
	store := memory.NewLedgerStore()
	store.CreateAccount(models.Account{ID: 1, UserID: 10, Name: "Dona da conta", Balance: decimal.Zero})

	g := guard.New(store)
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID int64
		callerID  int64
		wantErr   error
	}{
		{name: "owner is allowed", accountID: 1, callerID: 10, wantErr: nil},
		{name: "other user is denied", accountID: 1, callerID: 11, wantErr: ledger.ErrUnauthorized},
		{name: "missing account", accountID: 2, callerID: 10, wantErr: ledger.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(ctx, tt.accountID, tt.callerID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
