package ledger

import "errors"

// Failure kinds returned by the ledger and its collaborators. Callers match
// them with errors.Is. Only ErrStorageConflict is safe to retry as-is; every
// other kind needs corrected input.
var (
	// ErrInvalidAmount is returned when an operation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound is returned when the operated account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrBeneficiaryNotFound is returned when the destination of a transfer
	// does not exist. Checked before any mutation.
	ErrBeneficiaryNotFound = errors.New("beneficiary account not found")

	// ErrInsufficientFunds is returned when a debit would drive the balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount is returned when a transfer names the same account as
	// source and destination.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrUnauthorized is returned by the ownership guard when the caller does
	// not own the account.
	ErrUnauthorized = errors.New("account does not belong to caller")

	// ErrStorageConflict is returned when the store aborts an operation due to
	// transient contention (deadlock, serialization failure). The whole
	// operation may be retried from validation onward.
	ErrStorageConflict = errors.New("storage conflict, retry the operation")
)
