package payoutmethods

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	InsertPayoutMethodQuery = `
						INSERT INTO payout_methods (id, user_id, kind, bank_code, account_number_masked, account_name, recipient_code, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	GetPayoutMethodQuery = `
						SELECT id, user_id, kind, bank_code, account_number_masked, account_name, recipient_code, created_at
						FROM payout_methods
						WHERE id = $1 AND user_id = $2;`
	GetPayoutMethodsByUID = `
						SELECT id, user_id, kind, bank_code, account_number_masked, account_name, recipient_code, created_at
						FROM payout_methods
						WHERE user_id = $1
						ORDER BY created_at DESC;`
)

type DatabasePayoutMethods interface {
	InsertPayoutMethod(ctx context.Context, m models.PayoutMethod) error
	GetPayoutMethod(ctx context.Context, UID, id uuid.UUID) (models.PayoutMethod, error)
	GetUserPayoutMethods(ctx context.Context, UID uuid.UUID) ([]models.PayoutMethod, error)
}

type DBPayoutMethods struct {
	pool *pgxpool.Pool
}

func NewDBPayoutMethods(pool *pgxpool.Pool) *DBPayoutMethods {
	return &DBPayoutMethods{pool: pool}
}

func (p *DBPayoutMethods) InsertPayoutMethod(ctx context.Context, m models.PayoutMethod) error {
	_, err := p.pool.Exec(ctx, InsertPayoutMethodQuery,
		m.ID,
		m.UserID,
		m.Kind,
		m.BankCode,
		m.AccountNumberMasked,
		m.AccountName,
		m.RecipientCode,
		m.CreatedAt,
	)
	return err
}

func (p *DBPayoutMethods) GetPayoutMethod(ctx context.Context, UID, id uuid.UUID) (models.PayoutMethod, error) {
	m, err := scanPayoutMethod(p.pool.QueryRow(ctx, GetPayoutMethodQuery, id, UID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PayoutMethod{}, models.ErrPayoutMethodNotFound
		}
		return models.PayoutMethod{}, err
	}
	return m, nil
}

func (p *DBPayoutMethods) GetUserPayoutMethods(ctx context.Context, UID uuid.UUID) ([]models.PayoutMethod, error) {
	rows, err := p.pool.Query(ctx, GetPayoutMethodsByUID, UID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payout methods: %w", err)
	}
	defer rows.Close()

	methods := make([]models.PayoutMethod, 0)
	for rows.Next() {
		m, err := scanPayoutMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(methods) == 0 {
		return nil, models.ErrNoData
	}
	return methods, nil
}

func scanPayoutMethod(row pgx.Row) (models.PayoutMethod, error) {
	var m models.PayoutMethod
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Kind,
		&m.BankCode,
		&m.AccountNumberMasked,
		&m.AccountName,
		&m.RecipientCode,
		&m.CreatedAt,
	)
	return m, err
}
