package withdrawals

import (
	"context"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionFlag    Action = "flag"
	ActionAddNote Action = "add_note"
)

func ParseAction(s string) (Action, bool) {
	a := Action(s)
	switch a {
	case ActionApprove, ActionReject, ActionFlag, ActionAddNote:
		return a, true
	}
	return "", false
}

type InitiateInput struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	PayoutMethodID uuid.UUID
	Pin            string
	Description    string
	IPAddress      string
	UserAgent      string
}

type ReviewInput struct {
	AdminID      uuid.UUID `json:"-"`
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Action       Action    `json:"action"`
	Reason       string    `json:"failure_reason,omitempty"`
	AdminNotes   string    `json:"admin_notes,omitempty"`
}

type WithdrawalService interface {
	Initiate(ctx context.Context, in InitiateInput) (models.WithdrawalRequest, error)
	Review(ctx context.Context, in ReviewInput) (models.WithdrawalRequest, error)
	// HandleTransferEvent applies a verified provider callback. Duplicate or
	// late events are absorbed and return a zero request with a nil error.
	HandleTransferEvent(ctx context.Context, ev paystack.Event) (models.WithdrawalRequest, error)
	Reconcile(ctx context.Context, actorID, id uuid.UUID) (models.WithdrawalRequest, error)
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, UID uuid.UUID) ([]models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error)
}

type PinVerifier interface {
	Verify(ctx context.Context, UID uuid.UUID, pin string) error
}

type PayoutMethodFinder interface {
	Get(ctx context.Context, UID, id uuid.UUID) (models.PayoutMethod, error)
}

type TransferProvider interface {
	InitiateTransfer(ctx context.Context, tr paystack.TransferRequest) (paystack.TransferResult, error)
	VerifyTransfer(ctx context.Context, reference string) (paystack.TransferResult, error)
}

type Notifier interface {
	Notify(UID uuid.UUID, title, message, kind string)
}

type AuditSink interface {
	Record(ctx context.Context, entry models.AuditLogEntry) error
}

type Options struct {
	Currency        string
	TransferTimeout time.Duration
	// RefundFees returns the gross amount instead of the net on refunds.
	RefundFees bool
	// DueBatch caps how many delayed requests one ProcessDue call claims.
	DueBatch int
}
