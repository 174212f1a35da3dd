package notifications

import (
	"context"
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	InsertNotificationQuery = `
						INSERT INTO notifications (id, user_id, title, message, kind, created_at)
						VALUES ($1, $2, $3, $4, $5, $6);`
	GetNotificationsByUID = `
						SELECT id, user_id, title, message, kind, read, created_at
						FROM notifications
						WHERE user_id = $1
						ORDER BY created_at DESC
						LIMIT 50;`
)

type DatabaseNotifications interface {
	InsertNotification(ctx context.Context, n models.Notification) error
	GetUserNotifications(ctx context.Context, UID uuid.UUID) ([]models.Notification, error)
}

type DBNotifications struct {
	pool *pgxpool.Pool
}

func NewDBNotifications(pool *pgxpool.Pool) *DBNotifications {
	return &DBNotifications{pool: pool}
}

func (d *DBNotifications) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := d.pool.Exec(ctx, InsertNotificationQuery, n.ID, n.UserID, n.Title, n.Message, n.Kind, n.CreatedAt)
	return err
}

func (d *DBNotifications) GetUserNotifications(ctx context.Context, UID uuid.UUID) ([]models.Notification, error) {
	rows, err := d.pool.Query(ctx, GetNotificationsByUID, UID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	list := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(list) == 0 {
		return nil, models.ErrNoData
	}
	return list, nil
}
