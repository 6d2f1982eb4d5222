package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger-service/internal/interfaces"
	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
)

// LedgerStore is a Postgres implementation of interfaces.LedgerStore.
// Commit runs inside a single database transaction and takes row locks on
// every affected account in ascending id order, so concurrent commits on
// overlapping accounts serialize instead of deadlocking.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore wraps an open database handle. Schema in schema.sql.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// GetAccount returns the account or ledger.ErrAccountNotFound.
func (s *LedgerStore) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	const query = `SELECT correntista_id, usuario_id, nome, saldo
	FROM correntistas WHERE correntista_id = $1`

	var account models.Account
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.Balance,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, translateErr(err)
	}
	return account, nil
}

// GetBalance returns the current balance or ledger.ErrAccountNotFound.
func (s *LedgerStore) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	const query = `SELECT saldo FROM correntistas WHERE correntista_id = $1`

	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ledger.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, translateErr(err)
	}
	return balance, nil
}

// Commit applies the deltas and appends the movements in one transaction.
// Affected rows are locked with SELECT ... FOR UPDATE before any balance is
// read, and every resulting balance is checked against zero before the
// update, so no commit can leave a balance negative even across processes.
func (s *LedgerStore) Commit(ctx context.Context, deltas []models.AccountDelta, movements []models.Movement) ([]models.Movement, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateErr(err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	// Net delta per account, locked and applied in ascending id order.
	net := make(map[int64]decimal.Decimal, len(deltas))
	ids := make([]int64, 0, len(deltas))
	for _, delta := range deltas {
		if _, seen := net[delta.AccountID]; !seen {
			ids = append(ids, delta.AccountID)
		}
		net[delta.AccountID] = net[delta.AccountID].Add(delta.Amount)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	const lockQuery = `SELECT saldo FROM correntistas WHERE correntista_id = $1 FOR UPDATE`
	const updateQuery = `UPDATE correntistas SET saldo = $2 WHERE correntista_id = $1`

	for _, id := range ids {
		var balance decimal.Decimal
		err = dbTx.QueryRowContext(ctx, lockQuery, id).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			err = ledger.ErrAccountNotFound
			return nil, err
		}
		if err != nil {
			err = translateErr(err)
			return nil, err
		}

		balance = balance.Add(net[id])
		if balance.IsNegative() {
			err = ledger.ErrInsufficientFunds
			return nil, err
		}
		if _, err = dbTx.ExecContext(ctx, updateQuery, id, balance); err != nil {
			err = translateErr(err)
			return nil, err
		}
	}

	const insertQuery = `INSERT INTO movimentacoes
	(operacao_id, tipo_operacao, correntista_id, valor_operacao, data_operacao, descricao, correntista_beneficiario_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING movimentacao_id`

	committed := make([]models.Movement, len(movements))
	for i, movement := range movements {
		err = dbTx.QueryRowContext(ctx, insertQuery,
			movement.OperationID,
			string(movement.Kind),
			movement.AccountID,
			movement.Amount,
			movement.CreatedAt,
			movement.Description,
			movement.CounterpartyID,
		).Scan(&movement.ID)
		if err != nil {
			err = translateErr(err)
			return nil, err
		}
		committed[i] = movement
	}

	if err = dbTx.Commit(); err != nil {
		err = translateErr(err)
		return nil, err
	}
	return committed, nil
}

// History returns the account's movements, most recent first.
func (s *LedgerStore) History(ctx context.Context, accountID int64) ([]models.Movement, error) {
	const query = `SELECT movimentacao_id, operacao_id, tipo_operacao, correntista_id,
	valor_operacao, data_operacao, descricao, correntista_beneficiario_id
	FROM movimentacoes
	WHERE correntista_id = $1
	ORDER BY data_operacao DESC, movimentacao_id DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var movements []models.Movement
	for rows.Next() {
		var movement models.Movement
		var kind string
		if err := rows.Scan(
			&movement.ID,
			&movement.OperationID,
			&kind,
			&movement.AccountID,
			&movement.Amount,
			&movement.CreatedAt,
			&movement.Description,
			&movement.CounterpartyID,
		); err != nil {
			return nil, translateErr(err)
		}
		movement.Kind = models.MovementKind(kind)
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr(err)
	}
	return movements, nil
}

// translateErr maps transient contention failures to ledger.ErrStorageConflict
// so callers can retry the whole operation. Everything else passes through.
func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ledger.ErrStorageConflict
		}
	}
	return err
}

// Compile-time check: LedgerStore implements interfaces.LedgerStore.
var _ interfaces.LedgerStore = (*LedgerStore)(nil)
