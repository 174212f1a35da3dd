package wallets

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WService struct {
	conn DatabaseWallets
}

func NewWService(conn DatabaseWallets) *WService {
	return &WService{conn: conn}
}

func (s *WService) GetUserBalance(ctx context.Context, UID uuid.UUID) (models.WalletBalance, error) {
	return s.conn.GetUserWallet(ctx, UID)
}

func (s *WService) CreditEarnings(ctx context.Context, UID uuid.UUID, amount decimal.Decimal) (models.WalletBalance, error) {
	if !amount.IsPositive() {
		return models.WalletBalance{}, models.ErrInvalidAmount
	}
	if err := s.conn.CreditEarnings(ctx, UID, amount); err != nil {
		return models.WalletBalance{}, err
	}
	logger.Log.Info("earnings credited",
		zap.String("user_id", UID.String()),
		zap.Stringer("amount", amount))
	return s.conn.GetUserWallet(ctx, UID)
}
