package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	StatusPending         WithdrawalStatus = "pending"
	StatusPendingDelay    WithdrawalStatus = "pending_delay"
	StatusPendingReview   WithdrawalStatus = "pending_review"
	StatusDispatching     WithdrawalStatus = "dispatching"
	StatusProcessing      WithdrawalStatus = "processing"
	StatusFlagged         WithdrawalStatus = "flagged"
	StatusTransferUnknown WithdrawalStatus = "transfer_unknown"
	StatusCompleted       WithdrawalStatus = "completed"
	StatusFailed          WithdrawalStatus = "failed"
	StatusRejected        WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}

func ParseWithdrawalStatus(s string) (WithdrawalStatus, bool) {
	st := WithdrawalStatus(s)
	switch st {
	case StatusPending, StatusPendingDelay, StatusPendingReview, StatusDispatching,
		StatusProcessing, StatusFlagged, StatusTransferUnknown, StatusCompleted,
		StatusFailed, StatusRejected:
		return st, true
	}
	return "", false
}

type Tier int

const (
	TierInstant Tier = 1
	TierDelayed Tier = 2
	TierReview  Tier = 3
)

type WithdrawalRequest struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	PayoutMethodID uuid.UUID        `json:"payout_method_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Fee            decimal.Decimal  `json:"fee"`
	NetAmount      decimal.Decimal  `json:"net_amount"`
	Currency       string           `json:"currency"`
	Description    string           `json:"description,omitempty"`
	Status         WithdrawalStatus `json:"status"`
	Tier           Tier             `json:"tier"`
	Anomalous      bool             `json:"anomalous"`
	Reference      string           `json:"reference"`
	TransferCode   string           `json:"transfer_code,omitempty"`
	ScheduledFor   *time.Time       `json:"scheduled_for,omitempty"`
	IPAddress      string           `json:"ip_address,omitempty"`
	UserAgent      string           `json:"user_agent,omitempty"`
	AdminID        *uuid.UUID       `json:"admin_id,omitempty"`
	AdminNotes     string           `json:"admin_notes,omitempty"`
	FailureReason  string           `json:"failure_reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type AuditLogEntry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
