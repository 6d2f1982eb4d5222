package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationCompleted is published after a ledger operation commits so that
// the initiating user can be notified. Delivery is fire-and-forget: a failed
// publish never rolls back the commit it describes.
type OperationCompleted struct {
	OperationID   string          `json:"operation_id"`
	Kind          string          `json:"kind"` // deposit, withdraw, pay, transfer
	AccountID     int64           `json:"account_id"`
	BeneficiaryID *int64          `json:"beneficiary_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
