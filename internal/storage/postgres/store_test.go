package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
	"github.com/contacorrente/ledger-service/internal/storage/postgres"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMockStore(t *testing.T) (*postgres.LedgerStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewLedgerStore(db), mock
}

func transferFixture() ([]models.AccountDelta, []models.Movement) {
	destID, sourceID := int64(2), int64(1)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	deltas := []models.AccountDelta{
		{AccountID: sourceID, Amount: dec("-30.00")},
		{AccountID: destID, Amount: dec("30.00")},
	}
	movements := []models.Movement{
		{
			OperationID:    "op-1",
			Kind:           models.Debit,
			AccountID:      sourceID,
			Amount:         dec("30.00"),
			CreatedAt:      now,
			Description:    "Transferência",
			CounterpartyID: &destID,
		},
		{
			OperationID:    "op-1",
			Kind:           models.Credit,
			AccountID:      destID,
			Amount:         dec("30.00"),
			CreatedAt:      now,
			Description:    "Transferência recebida",
			CounterpartyID: &sourceID,
		},
	}
	return deltas, movements
}

func TestCommitTransfer(t *testing.T) {
	store, mock := newMockStore(t)
	deltas, movements := transferFixture()

	mock.ExpectBegin()
	// Rows locked in ascending account-id order.
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"saldo"}).AddRow("100.00"))
	mock.ExpectExec("UPDATE correntistas").WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"saldo"}).AddRow("0"))
	mock.ExpectExec("UPDATE correntistas").WithArgs(int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO movimentacoes").
		WillReturnRows(sqlmock.NewRows([]string{"movimentacao_id"}).AddRow(int64(11)))
	mock.ExpectQuery("INSERT INTO movimentacoes").
		WillReturnRows(sqlmock.NewRows([]string{"movimentacao_id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	committed, err := store.Commit(context.Background(), deltas, movements)
	require.NoError(t, err)
	require.Len(t, committed, 2)
	assert.Equal(t, int64(11), committed[0].ID)
	assert.Equal(t, int64(12), committed[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitInsufficientFundsRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	deltas, movements := transferFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"saldo"}).AddRow("10.00"))
	mock.ExpectRollback()

	_, err := store.Commit(context.Background(), deltas, movements)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitMissingAccountRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	deltas, movements := transferFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.Commit(context.Background(), deltas, movements)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitDeadlockIsRetryable(t *testing.T) {
	store, mock := newMockStore(t)
	deltas, movements := transferFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(1)).
		WillReturnError(&pq.Error{Code: "40P01"})
	mock.ExpectRollback()

	_, err := store.Commit(context.Background(), deltas, movements)
	assert.ErrorIs(t, err, ledger.ErrStorageConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"correntista_id", "usuario_id", "nome", "saldo"}).
		AddRow(int64(1), int64(10), "Titular", "55.50")
	mock.ExpectQuery("SELECT correntista_id, usuario_id, nome, saldo").
		WithArgs(int64(1)).WillReturnRows(rows)

	account, err := store.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), account.UserID)
	assert.True(t, account.Balance.Equal(dec("55.50")))
}

func TestGetBalanceNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT saldo FROM correntistas").
		WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := store.GetBalance(context.Background(), 9)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestHistory(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"movimentacao_id", "operacao_id", "tipo_operacao", "correntista_id",
		"valor_operacao", "data_operacao", "descricao", "correntista_beneficiario_id",
	}).
		AddRow(int64(2), "op-2", "D", int64(1), "30.00", now, "Transferência", int64(2)).
		AddRow(int64(1), "op-1", "C", int64(1), "50.00", now.Add(-time.Hour), "Depósito em conta", nil)
	mock.ExpectQuery("FROM movimentacoes").WithArgs(int64(1)).WillReturnRows(rows)

	movements, err := store.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, models.Debit, movements[0].Kind)
	require.NotNil(t, movements[0].CounterpartyID)
	assert.Equal(t, int64(2), *movements[0].CounterpartyID)

	assert.Equal(t, models.Credit, movements[1].Kind)
	assert.Nil(t, movements[1].CounterpartyID)
	assert.True(t, movements[1].Amount.Equal(dec("50.00")))
}
