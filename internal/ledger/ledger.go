package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger-service/internal/interfaces"
	"github.com/contacorrente/ledger-service/internal/models"
	"github.com/contacorrente/ledger-service/internal/models/events"
)

// Descriptions recorded on movements, one per operation kind.
const (
	descDeposit          = "Depósito em conta"
	descWithdraw         = "Saque"
	descPayPrefix        = "Pagamento: "
	descTransferSent     = "Transferência"
	descTransferReceived = "Transferência recebida"
)

// Ledger executes the four account operations as atomic units against the
// store. It serializes concurrent operations per account: each operation
// holds the mutexes of every account it touches from validation through
// commit, and multi-account operations acquire them in ascending account-id
// order so opposing transfers cannot deadlock.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // optional notification channel
	topic     string
	logger    *slog.Logger

	muMap map[int64]*sync.Mutex // one mutex per account seen so far
	mapMu sync.Mutex            // protects muMap itself
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher attaches a notification publisher. Publishing happens after
// commit and never affects the operation result.
func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = p
		l.topic = topic
	}
}

// WithLogger sets the logger used for post-commit notification failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger creates a Ledger backed by the given store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		muMap:  make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) accountLock(accountID int64) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	mu, ok := l.muMap[accountID]
	if !ok {
		mu = &sync.Mutex{}
		l.muMap[accountID] = mu
	}
	return mu
}

// Deposit credits amount to the account and records a Credit movement.
// It cannot fail for insufficient funds.
func (l *Ledger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Movement, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return models.Movement{}, ErrInvalidAmount
	}

	mu := l.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return models.Movement{}, err
	}

	opID := uuid.New().String()
	movement := models.Movement{
		OperationID: opID,
		Kind:        models.Credit,
		AccountID:   accountID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
		Description: descDeposit,
	}

	committed, err := l.store.Commit(ctx,
		[]models.AccountDelta{{AccountID: accountID, Amount: amount}},
		[]models.Movement{movement},
	)
	if err != nil {
		return models.Movement{}, err
	}

	l.notify(events.OperationCompleted{
		OperationID: opID,
		Kind:        "deposit",
		AccountID:   accountID,
		Amount:      amount,
		OccurredAt:  movement.CreatedAt,
	})
	return committed[0], nil
}

// Withdraw debits amount from the account and records a Debit movement.
func (l *Ledger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Movement, error) {
	return l.debit(ctx, accountID, amount, descWithdraw, "withdraw")
}

// Pay debits amount from the account like Withdraw, labelling the movement
// with the supplied payment reason.
func (l *Ledger) Pay(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (models.Movement, error) {
	return l.debit(ctx, accountID, amount, descPayPrefix+description, "pay")
}

func (l *Ledger) debit(ctx context.Context, accountID int64, amount decimal.Decimal, description, kind string) (models.Movement, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return models.Movement{}, ErrInvalidAmount
	}

	mu := l.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	balance, err := l.store.GetBalance(ctx, accountID)
	if err != nil {
		return models.Movement{}, err
	}
	if balance.Cmp(amount) < 0 {
		return models.Movement{}, ErrInsufficientFunds
	}

	opID := uuid.New().String()
	movement := models.Movement{
		OperationID: opID,
		Kind:        models.Debit,
		AccountID:   accountID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
		Description: description,
	}

	committed, err := l.store.Commit(ctx,
		[]models.AccountDelta{{AccountID: accountID, Amount: amount.Neg()}},
		[]models.Movement{movement},
	)
	if err != nil {
		return models.Movement{}, err
	}

	l.notify(events.OperationCompleted{
		OperationID: opID,
		Kind:        kind,
		AccountID:   accountID,
		Amount:      amount,
		OccurredAt:  movement.CreatedAt,
	})
	return committed[0], nil
}

// Transfer moves amount from the source account to the destination account.
// Both legs commit together or not at all: a Debit movement on the source
// referencing the destination, and a Credit movement on the destination
// referencing the source.
func (l *Ledger) Transfer(ctx context.Context, sourceID int64, amount decimal.Decimal, destinationID int64) ([]models.Movement, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, ErrInvalidAmount
	}
	if sourceID == destinationID {
		return nil, ErrSameAccount
	}

	sourceMu := l.accountLock(sourceID)
	destMu := l.accountLock(destinationID)

	// Acquire in ascending account-id order so two opposing transfers on the
	// same pair cannot deadlock.
	if sourceID < destinationID {
		sourceMu.Lock()
		destMu.Lock()
	} else {
		destMu.Lock()
		sourceMu.Lock()
	}
	defer sourceMu.Unlock()
	defer destMu.Unlock()

	balance, err := l.store.GetBalance(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if _, err := l.store.GetAccount(ctx, destinationID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}

	opID := uuid.New().String()
	now := time.Now().UTC()
	debit := models.Movement{
		OperationID:    opID,
		Kind:           models.Debit,
		AccountID:      sourceID,
		Amount:         amount,
		CreatedAt:      now,
		Description:    descTransferSent,
		CounterpartyID: &destinationID,
	}
	credit := models.Movement{
		OperationID:    opID,
		Kind:           models.Credit,
		AccountID:      destinationID,
		Amount:         amount,
		CreatedAt:      now,
		Description:    descTransferReceived,
		CounterpartyID: &sourceID,
	}

	committed, err := l.store.Commit(ctx,
		[]models.AccountDelta{
			{AccountID: sourceID, Amount: amount.Neg()},
			{AccountID: destinationID, Amount: amount},
		},
		[]models.Movement{debit, credit},
	)
	if err != nil {
		return nil, err
	}

	l.notify(events.OperationCompleted{
		OperationID:   opID,
		Kind:          "transfer",
		AccountID:     sourceID,
		BeneficiaryID: &destinationID,
		Amount:        amount,
		OccurredAt:    now,
	})
	return committed, nil
}

// GetBalance returns the account's current balance.
func (l *Ledger) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return l.store.GetBalance(ctx, accountID)
}

// Statement returns the account's movement history, most recent first.
func (l *Ledger) Statement(ctx context.Context, accountID int64) ([]models.Movement, error) {
	return l.store.History(ctx, accountID)
}

// notify hands the event to the publisher without blocking the caller.
// Failures are logged and dropped; a committed operation stays committed.
func (l *Ledger) notify(event events.OperationCompleted) {
	if l.publisher == nil {
		return
	}
	go func() {
		if err := l.publisher.Publish(l.topic, event); err != nil {
			l.logger.Error("failed to publish operation event",
				"operation_id", event.OperationID,
				"kind", event.Kind,
				"error", err)
		}
	}()
}
