package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `id, user_id, payout_method_id, amount, fee, net_amount, currency, description,
						status, tier, anomalous, reference, transfer_code, scheduled_for, ip_address, user_agent,
						admin_id, admin_notes, failure_reason, created_at, updated_at`

const (
	InsertWithdrawalQuery = `
						INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);`
	GetWithdrawalByIDQuery  = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1;`
	GetWithdrawalByRefQuery = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE reference = $1;`
	LockWithdrawalByID      = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE;`
	LockWithdrawalByRef     = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE reference = $1 FOR UPDATE;`
	LatestProcessingQuery   = `
						SELECT ` + withdrawalColumns + `
						FROM withdrawal_requests
						WHERE user_id = $1 AND status = 'processing'
						ORDER BY created_at DESC
						LIMIT 1;`
	GetWithdrawalsByUID = `
						SELECT ` + withdrawalColumns + `
						FROM withdrawal_requests
						WHERE user_id = $1
						ORDER BY created_at DESC;`
	GetWithdrawalsByStatus = `
						SELECT ` + withdrawalColumns + `
						FROM withdrawal_requests
						WHERE status = $1
						ORDER BY created_at ASC
						LIMIT $2;`
	UpdateWithdrawalQuery = `
						UPDATE withdrawal_requests
						SET status = $2, reference = $3, transfer_code = $4, admin_id = $5,
							admin_notes = $6, failure_reason = $7, updated_at = $8
						WHERE id = $1;`
	ClaimDueQuery = `
						UPDATE withdrawal_requests
						SET status = 'dispatching', updated_at = $1
						WHERE id IN (
							SELECT id FROM withdrawal_requests
							WHERE status = 'pending_delay' AND scheduled_for <= $1
							ORDER BY scheduled_for ASC
							LIMIT $2
							FOR UPDATE SKIP LOCKED
						)
						RETURNING ` + withdrawalColumns + `;`
)

const listLimit = 100

// Transition describes a guarded status change. The row is locked, its status
// must be one of From (any status when From is empty), the non-nil fields are
// applied and the ledger outcome is booked, all in one transaction.
type Transition struct {
	ID uuid.UUID
	// Reference locates the row when ID is zero (provider callbacks).
	Reference string
	From      []models.WithdrawalStatus
	To        models.WithdrawalStatus

	NewReference  *string
	TransferCode  *string
	AdminID       *uuid.UUID
	AdminNotes    *string
	FailureReason *string

	Ledger     wallets.Outcome
	RefundFees bool
}

func (t Transition) Allows(status models.WithdrawalStatus) bool {
	if len(t.From) == 0 {
		return true
	}
	for _, s := range t.From {
		if s == status {
			return true
		}
	}
	return false
}

// Apply mutates w in place.
func (t Transition) Apply(w *models.WithdrawalRequest, now time.Time) {
	if t.To != "" {
		w.Status = t.To
	}
	if t.NewReference != nil {
		w.Reference = *t.NewReference
	}
	if t.TransferCode != nil {
		w.TransferCode = *t.TransferCode
	}
	if t.AdminID != nil {
		id := *t.AdminID
		w.AdminID = &id
	}
	if t.AdminNotes != nil {
		w.AdminNotes = *t.AdminNotes
	}
	if t.FailureReason != nil {
		w.FailureReason = *t.FailureReason
	}
	w.UpdatedAt = now
}

// Credited returns the amount booked against the ledger for t on w.
func (t Transition) Credited(w models.WithdrawalRequest) decimal.Decimal {
	if t.Ledger == wallets.OutcomeRefunded {
		return wallets.RefundAmount(w, t.RefundFees)
	}
	return w.NetAmount
}

type DatabaseWithdrawals interface {
	// Create debits the ledger and inserts w atomically.
	Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error)
	Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error)
	GetByReference(ctx context.Context, reference string) (models.WithdrawalRequest, error)
	// LatestProcessing returns nil when the user has no processing withdrawal.
	LatestProcessing(ctx context.Context, UID uuid.UUID) (*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, UID uuid.UUID) ([]models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error)
	Transition(ctx context.Context, t Transition) (models.WithdrawalRequest, error)
	// ClaimDue moves due pending_delay rows to dispatching and returns them.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.WithdrawalRequest, error)
}

type DBWithdrawals struct {
	pool *pgxpool.Pool
}

func NewDBWithdrawals(pool *pgxpool.Pool) *DBWithdrawals {
	return &DBWithdrawals{pool: pool}
}

func (d *DBWithdrawals) Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := wallets.BeginWithdrawal(ctx, tx, w.UserID, w.Amount); err != nil {
		return models.WithdrawalRequest{}, err
	}

	_, err = tx.Exec(ctx, InsertWithdrawalQuery,
		w.ID,
		w.UserID,
		w.PayoutMethodID,
		w.Amount,
		w.Fee,
		w.NetAmount,
		w.Currency,
		w.Description,
		w.Status,
		w.Tier,
		w.Anomalous,
		w.Reference,
		w.TransferCode,
		w.ScheduledFor,
		w.IPAddress,
		w.UserAgent,
		w.AdminID,
		w.AdminNotes,
		w.FailureReason,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("insert withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WithdrawalRequest{}, err
	}
	return w, nil
}

func (d *DBWithdrawals) Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	return d.getOne(ctx, GetWithdrawalByIDQuery, id)
}

func (d *DBWithdrawals) GetByReference(ctx context.Context, reference string) (models.WithdrawalRequest, error) {
	return d.getOne(ctx, GetWithdrawalByRefQuery, reference)
}

func (d *DBWithdrawals) getOne(ctx context.Context, query string, arg any) (models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(d.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
		}
		return models.WithdrawalRequest{}, err
	}
	return w, nil
}

func (d *DBWithdrawals) LatestProcessing(ctx context.Context, UID uuid.UUID) (*models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(d.pool.QueryRow(ctx, LatestProcessingQuery, UID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (d *DBWithdrawals) ListByUser(ctx context.Context, UID uuid.UUID) ([]models.WithdrawalRequest, error) {
	rows, err := d.pool.Query(ctx, GetWithdrawalsByUID, UID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	return collectWithdrawals(rows)
}

func (d *DBWithdrawals) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	rows, err := d.pool.Query(ctx, GetWithdrawalsByStatus, status, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	return collectWithdrawals(rows)
}

func (d *DBWithdrawals) Transition(ctx context.Context, t Transition) (models.WithdrawalRequest, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var row pgx.Row
	if t.ID != uuid.Nil {
		row = tx.QueryRow(ctx, LockWithdrawalByID, t.ID)
	} else {
		row = tx.QueryRow(ctx, LockWithdrawalByRef, t.Reference)
	}
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
		}
		return models.WithdrawalRequest{}, err
	}
	if !t.Allows(w.Status) {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: status is %s", models.ErrInvalidTransition, w.Status)
	}

	t.Apply(&w, time.Now())
	_, err = tx.Exec(ctx, UpdateWithdrawalQuery,
		w.ID,
		w.Status,
		w.Reference,
		w.TransferCode,
		w.AdminID,
		w.AdminNotes,
		w.FailureReason,
		w.UpdatedAt,
	)
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("update withdrawal: %w", err)
	}

	if err := wallets.ResolveWithdrawal(ctx, tx, w.UserID, w.Amount, t.Credited(w), t.Ledger); err != nil {
		return models.WithdrawalRequest{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WithdrawalRequest{}, err
	}
	return w, nil
}

func (d *DBWithdrawals) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.WithdrawalRequest, error) {
	rows, err := d.pool.Query(ctx, ClaimDueQuery, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due withdrawals: %w", err)
	}
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]models.WithdrawalRequest, error) {
	defer rows.Close()
	list := make([]models.WithdrawalRequest, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		list = append(list, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return list, nil
}

func scanWithdrawal(row pgx.Row) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.PayoutMethodID,
		&w.Amount,
		&w.Fee,
		&w.NetAmount,
		&w.Currency,
		&w.Description,
		&w.Status,
		&w.Tier,
		&w.Anomalous,
		&w.Reference,
		&w.TransferCode,
		&w.ScheduledFor,
		&w.IPAddress,
		&w.UserAgent,
		&w.AdminID,
		&w.AdminNotes,
		&w.FailureReason,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}
