package payoutmethods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PMService struct {
	conn       DatabasePayoutMethods
	recipients RecipientRegistry
	locker     PayoutLocker
	currency   string
}

func NewPMService(conn DatabasePayoutMethods, recipients RecipientRegistry, locker PayoutLocker, currency string) *PMService {
	return &PMService{conn: conn, recipients: recipients, locker: locker, currency: currency}
}

// Create registers a destination with the provider and stores it. Adding a
// destination starts the payout cool-down.
func (s *PMService) Create(ctx context.Context, UID uuid.UUID, in CreateInput) (models.PayoutMethod, error) {
	if UID == uuid.Nil {
		return models.PayoutMethod{}, models.ErrUnauthenticated
	}
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.AccountName = strings.TrimSpace(in.AccountName)
	if in.Kind == "" {
		in.Kind = models.PayoutKindBank
	}
	if err := validate(in); err != nil {
		return models.PayoutMethod{}, err
	}

	rec, err := s.recipients.CreateRecipient(ctx, paystack.RecipientRequest{
		Type:          paystack.RecipientType(in.Kind),
		Name:          in.AccountName,
		AccountNumber: in.AccountNumber,
		BankCode:      in.BankCode,
		Currency:      s.currency,
	})
	if err != nil {
		return models.PayoutMethod{}, fmt.Errorf("%w: %v", models.ErrInvalidPayoutMethod, err)
	}

	m := models.PayoutMethod{
		ID:                  uuid.New(),
		UserID:              UID,
		Kind:                in.Kind,
		BankCode:            in.BankCode,
		AccountNumberMasked: Mask(in.AccountNumber),
		AccountName:         in.AccountName,
		RecipientCode:       rec.RecipientCode,
		CreatedAt:           time.Now(),
	}
	// the cool-down must be in place before the destination becomes usable
	if err := s.locker.LockPayouts(ctx, UID); err != nil {
		return models.PayoutMethod{}, fmt.Errorf("lock payouts: %w", err)
	}
	if err := s.conn.InsertPayoutMethod(ctx, m); err != nil {
		return models.PayoutMethod{}, err
	}
	logger.Log.Info("payout method registered",
		zap.String("user_id", UID.String()),
		zap.String("payout_method_id", m.ID.String()),
		zap.String("kind", m.Kind))
	return m, nil
}

func (s *PMService) Get(ctx context.Context, UID, id uuid.UUID) (models.PayoutMethod, error) {
	return s.conn.GetPayoutMethod(ctx, UID, id)
}

func (s *PMService) List(ctx context.Context, UID uuid.UUID) ([]models.PayoutMethod, error) {
	return s.conn.GetUserPayoutMethods(ctx, UID)
}

func validate(in CreateInput) error {
	if in.Kind != models.PayoutKindBank && in.Kind != models.PayoutKindMobileMoney {
		return fmt.Errorf("%w: unknown kind %q", models.ErrInvalidPayoutMethod, in.Kind)
	}
	if in.BankCode == "" || in.AccountName == "" || len(in.AccountNumber) < 6 {
		return fmt.Errorf("%w: bank code, account name and account number are required", models.ErrInvalidPayoutMethod)
	}
	for _, r := range in.AccountNumber {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: account number must be numeric", models.ErrInvalidPayoutMethod)
		}
	}
	return nil
}

// Mask keeps the last four digits.
func Mask(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
