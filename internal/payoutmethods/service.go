package payoutmethods

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/google/uuid"
)

type PayoutMethodService interface {
	Create(ctx context.Context, UID uuid.UUID, in CreateInput) (models.PayoutMethod, error)
	Get(ctx context.Context, UID, id uuid.UUID) (models.PayoutMethod, error)
	List(ctx context.Context, UID uuid.UUID) ([]models.PayoutMethod, error)
}

type CreateInput struct {
	Kind          string `json:"kind"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type RecipientRegistry interface {
	CreateRecipient(ctx context.Context, rr paystack.RecipientRequest) (paystack.Recipient, error)
}

type PayoutLocker interface {
	LockPayouts(ctx context.Context, UID uuid.UUID) error
}
