package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger-service/internal/guard"
	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
)

// server translates HTTP requests into guard and ledger calls. Caller
// identity arrives in the X-User-ID header, already resolved by the
// authentication layer in front of this service.
type server struct {
	ledger *ledger.Ledger
	guard  *guard.Guard
	logger *slog.Logger
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type payRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type transferRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BeneficiaryID int64           `json:"beneficiary_id"`
}

type movementResponse struct {
	MovementID     int64           `json:"movement_id"`
	OperationID    string          `json:"operation_id"`
	Kind           string          `json:"kind"`
	AccountID      int64           `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
	Description    string          `json:"description"`
	CounterpartyID *int64          `json:"counterparty_id,omitempty"`
}

func toMovementResponse(m models.Movement) movementResponse {
	return movementResponse{
		MovementID:     m.ID,
		OperationID:    m.OperationID,
		Kind:           string(m.Kind),
		AccountID:      m.AccountID,
		Amount:         m.Amount,
		CreatedAt:      m.CreatedAt,
		Description:    m.Description,
		CounterpartyID: m.CounterpartyID,
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, callerID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	movement, err := s.ledger.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.logger.Info("deposit committed", "account_id", accountID, "user_id", callerID, "amount", req.Amount)
	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (s *server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	accountID, callerID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	movement, err := s.ledger.Withdraw(r.Context(), accountID, req.Amount)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.logger.Info("withdrawal committed", "account_id", accountID, "user_id", callerID, "amount", req.Amount)
	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (s *server) handlePay(w http.ResponseWriter, r *http.Request) {
	accountID, callerID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	movement, err := s.ledger.Pay(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.logger.Info("payment committed", "account_id", accountID, "user_id", callerID, "amount", req.Amount)
	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (s *server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	accountID, callerID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	movements, err := s.ledger.Transfer(r.Context(), accountID, req.Amount, req.BeneficiaryID)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	response := make([]movementResponse, len(movements))
	for i, m := range movements {
		response[i] = toMovementResponse(m)
	}

	s.logger.Info("transfer committed",
		"account_id", accountID,
		"user_id", callerID,
		"beneficiary_id", req.BeneficiaryID,
		"amount", req.Amount)
	writeJSON(w, http.StatusCreated, response)
}

func (s *server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.authorize(w, r)
	if !ok {
		return
	}

	balance, err := s.ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID int64           `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{AccountID: accountID, Balance: balance})
}

func (s *server) handleStatement(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.authorize(w, r)
	if !ok {
		return
	}

	movements, err := s.ledger.Statement(r.Context(), accountID)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	response := make([]movementResponse, len(movements))
	for i, m := range movements {
		response[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, response)
}

// authorize parses the account id and caller identity and runs the ownership
// guard. It writes the response itself on failure.
func (s *server) authorize(w http.ResponseWriter, r *http.Request) (accountID, callerID int64, ok bool) {
	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, 0, false
	}

	callerID, err = strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid caller identity")
		return 0, 0, false
	}

	if err := s.guard.Authorize(r.Context(), accountID, callerID); err != nil {
		s.writeLedgerError(w, r, err)
		return 0, 0, false
	}
	return accountID, callerID, true
}

func (s *server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSameAccount):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrBeneficiaryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrStorageConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("operation failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"erro": message})
}
