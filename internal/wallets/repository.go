package wallets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	CreateUserWalletQuery = `INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING;`
	GetWalletByUID        = `
						SELECT user_id, available, pending, total_earnings, total_withdrawn, updated_at
						FROM wallets
						WHERE user_id = $1;`
	CreditEarningsQuery = `
						UPDATE wallets
						SET available = available + $1, total_earnings = total_earnings + $1, updated_at = NOW()
						WHERE user_id = $2;`

	// The available >= $1 predicate makes the check and the debit one atomic step.
	BeginWithdrawalQuery = `
						UPDATE wallets
						SET available = available - $1, pending = pending + $1, updated_at = NOW()
						WHERE user_id = $2 AND available >= $1;`
	SettleWithdrawalQuery = `
						UPDATE wallets
						SET pending = pending - $1, total_withdrawn = total_withdrawn + $2, updated_at = NOW()
						WHERE user_id = $3 AND pending >= $1;`
	RefundWithdrawalQuery = `
						UPDATE wallets
						SET pending = pending - $1, available = available + $2, updated_at = NOW()
						WHERE user_id = $3 AND pending >= $1;`
)

var ErrLedgerMismatch = errors.New("pending balance does not cover the withdrawal")

type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeSpent: funds left the ledger.
	OutcomeSpent
	// OutcomeRefunded: funds return to the available bucket.
	OutcomeRefunded
)

type DatabaseWallets interface {
	CreateUserWallet(ctx context.Context, UID uuid.UUID) error
	GetUserWallet(ctx context.Context, UID uuid.UUID) (models.WalletBalance, error)
	CreditEarnings(ctx context.Context, UID uuid.UUID, amount decimal.Decimal) error
}

type DBWallets struct {
	pool *pgxpool.Pool
}

func NewDBWallets(pool *pgxpool.Pool) *DBWallets {
	return &DBWallets{pool: pool}
}

func (w *DBWallets) CreateUserWallet(ctx context.Context, UID uuid.UUID) error {
	_, err := w.pool.Exec(ctx, CreateUserWalletQuery, UID)
	return err
}

func (w *DBWallets) GetUserWallet(ctx context.Context, UID uuid.UUID) (models.WalletBalance, error) {
	var wallet models.WalletBalance
	err := w.pool.QueryRow(ctx, GetWalletByUID, UID).Scan(
		&wallet.UserID,
		&wallet.Available,
		&wallet.Pending,
		&wallet.TotalEarnings,
		&wallet.TotalWithdrawn,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WalletBalance{}, models.ErrNoData
		}
		return models.WalletBalance{}, fmt.Errorf("failed to get wallet info: %w", err)
	}
	return wallet, nil
}

func (w *DBWallets) CreditEarnings(ctx context.Context, UID uuid.UUID, amount decimal.Decimal) error {
	tag, err := w.pool.Exec(ctx, CreditEarningsQuery, amount, UID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNoData
	}
	return nil
}

// BeginWithdrawal moves amount from available to pending inside tx.
func BeginWithdrawal(ctx context.Context, tx pgx.Tx, UID uuid.UUID, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, BeginWithdrawalQuery, amount, UID)
	if err != nil {
		return fmt.Errorf("debit available balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInsufficientBalance
	}
	return nil
}

// ResolveWithdrawal removes amount from pending inside tx. For OutcomeSpent,
// credited is added to total_withdrawn; for OutcomeRefunded it is returned to
// available.
func ResolveWithdrawal(ctx context.Context, tx pgx.Tx, UID uuid.UUID, amount, credited decimal.Decimal, outcome Outcome) error {
	var query string
	switch outcome {
	case OutcomeNone:
		return nil
	case OutcomeSpent:
		query = SettleWithdrawalQuery
	case OutcomeRefunded:
		query = RefundWithdrawalQuery
	default:
		return fmt.Errorf("unknown ledger outcome %d", outcome)
	}
	tag, err := tx.Exec(ctx, query, amount, credited, UID)
	if err != nil {
		return fmt.Errorf("resolve pending balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLedgerMismatch
	}
	return nil
}

// RefundAmount is what a rejected or failed withdrawal gives back. Fees are kept
// unless refundFees is set.
func RefundAmount(w models.WithdrawalRequest, refundFees bool) decimal.Decimal {
	if refundFees {
		return w.Amount
	}
	return w.NetAmount
}
