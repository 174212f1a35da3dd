package wallets

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletService interface {
	GetUserBalance(ctx context.Context, UID uuid.UUID) (models.WalletBalance, error)
	CreditEarnings(ctx context.Context, UID uuid.UUID, amount decimal.Decimal) (models.WalletBalance, error)
}
