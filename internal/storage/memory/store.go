package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger-service/internal/interfaces"
	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
)

// LedgerStore is an in-memory implementation of interfaces.LedgerStore.
// A single mutex guards accounts and movements together, so Commit applies
// its deltas and appends as one atomic unit.
type LedgerStore struct {
	mu        sync.Mutex
	accounts  map[int64]models.Account
	movements []models.Movement
	nextID    int64 // next movement identifier, monotonically increasing
}

// NewLedgerStore creates an empty in-memory store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts: make(map[int64]models.Account),
		nextID:   1,
	}
}

// CreateAccount registers an account. Administrative operation, used for
// seeding; the ledger itself never creates accounts.
func (s *LedgerStore) CreateAccount(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// GetAccount returns the account or ledger.ErrAccountNotFound.
func (s *LedgerStore) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

// GetBalance returns the current balance or ledger.ErrAccountNotFound.
func (s *LedgerStore) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, ledger.ErrAccountNotFound
	}
	return account.Balance, nil
}

// Commit applies every delta and appends every movement under one lock.
// If any account is missing or any delta would drive a balance negative,
// nothing is changed.
func (s *LedgerStore) Commit(ctx context.Context, deltas []models.AccountDelta, movements []models.Movement) ([]models.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before touching state.
	updated := make(map[int64]decimal.Decimal, len(deltas))
	for _, delta := range deltas {
		account, ok := s.accounts[delta.AccountID]
		if !ok {
			return nil, ledger.ErrAccountNotFound
		}
		balance, seen := updated[delta.AccountID]
		if !seen {
			balance = account.Balance
		}
		balance = balance.Add(delta.Amount)
		if balance.IsNegative() {
			return nil, ledger.ErrInsufficientFunds
		}
		updated[delta.AccountID] = balance
	}

	for id, balance := range updated {
		account := s.accounts[id]
		account.Balance = balance
		s.accounts[id] = account
	}

	committed := make([]models.Movement, len(movements))
	for i, movement := range movements {
		movement.ID = s.nextID
		s.nextID++
		s.movements = append(s.movements, movement)
		committed[i] = movement
	}
	return committed, nil
}

// History returns the account's movements, most recent first.
func (s *LedgerStore) History(ctx context.Context, accountID int64) ([]models.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Movement
	for _, m := range s.movements {
		if m.AccountID == accountID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Compile-time check: LedgerStore implements interfaces.LedgerStore.
var _ interfaces.LedgerStore = (*LedgerStore)(nil)
