package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletBalance struct {
	UserID         uuid.UUID       `json:"user_id"`
	Available      decimal.Decimal `json:"available"`
	Pending        decimal.Decimal `json:"pending"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type TransactionPin struct {
	UserID          uuid.UUID  `json:"-"`
	PinHash         string     `json:"-"`
	PayoutLockUntil *time.Time `json:"payout_lock_until,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p TransactionPin) Configured() bool {
	return p.PinHash != ""
}

const (
	PayoutKindBank        = "bank"
	PayoutKindMobileMoney = "mobile_money"
)

type PayoutMethod struct {
	ID                  uuid.UUID `json:"id"`
	UserID              uuid.UUID `json:"-"`
	Kind                string    `json:"kind"`
	BankCode            string    `json:"bank_code"`
	AccountNumberMasked string    `json:"account_number"`
	AccountName         string    `json:"account_name"`
	RecipientCode       string    `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}
