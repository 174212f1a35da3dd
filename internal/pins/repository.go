package pins

import (
	"context"
	"errors"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	GetPinQuery = `SELECT user_id, pin_hash, payout_lock_until, updated_at FROM transaction_pins WHERE user_id = $1;`
	SavePinQuery = `
						INSERT INTO transaction_pins (user_id, pin_hash, payout_lock_until, updated_at)
						VALUES ($1, $2, $3, NOW())
						ON CONFLICT (user_id) DO UPDATE
						SET pin_hash = EXCLUDED.pin_hash,
							payout_lock_until = GREATEST(transaction_pins.payout_lock_until, EXCLUDED.payout_lock_until),
							updated_at = NOW();`
	// The row may exist without a hash: a lock set before the PIN still applies once it is.
	ExtendLockQuery = `
						INSERT INTO transaction_pins (user_id, payout_lock_until, updated_at)
						VALUES ($1, $2, NOW())
						ON CONFLICT (user_id) DO UPDATE
						SET payout_lock_until = GREATEST(transaction_pins.payout_lock_until, EXCLUDED.payout_lock_until),
							updated_at = NOW();`
)

type DatabasePins interface {
	GetPin(ctx context.Context, UID uuid.UUID) (models.TransactionPin, error)
	SavePin(ctx context.Context, UID uuid.UUID, hash string, lockUntil *time.Time) error
	ExtendLock(ctx context.Context, UID uuid.UUID, until time.Time) error
}

type DBPins struct {
	pool *pgxpool.Pool
}

func NewDBPins(pool *pgxpool.Pool) *DBPins {
	return &DBPins{pool: pool}
}

func (p *DBPins) GetPin(ctx context.Context, UID uuid.UUID) (models.TransactionPin, error) {
	var rec models.TransactionPin
	err := p.pool.QueryRow(ctx, GetPinQuery, UID).Scan(&rec.UserID, &rec.PinHash, &rec.PayoutLockUntil, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TransactionPin{}, models.ErrNoData
		}
		return models.TransactionPin{}, err
	}
	return rec, nil
}

func (p *DBPins) SavePin(ctx context.Context, UID uuid.UUID, hash string, lockUntil *time.Time) error {
	_, err := p.pool.Exec(ctx, SavePinQuery, UID, hash, lockUntil)
	return err
}

func (p *DBPins) ExtendLock(ctx context.Context, UID uuid.UUID, until time.Time) error {
	_, err := p.pool.Exec(ctx, ExtendLockQuery, UID, until)
	return err
}
