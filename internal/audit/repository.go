// Package audit is the append-only log of state-changing admin and system actions.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	InsertAuditQuery = `
						INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, metadata, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7);`
	GetAuditByTargetQuery = `
						SELECT id, actor_id, action, target_type, target_id, metadata, created_at
						FROM audit_logs
						WHERE target_type = $1 AND target_id = $2
						ORDER BY created_at ASC;`
)

const TargetWithdrawal = "withdrawal_request"

// SystemActor is recorded for actions not taken by a person (scheduler, webhook).
var SystemActor = uuid.Nil

type DatabaseAudit interface {
	Record(ctx context.Context, entry models.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLogEntry, error)
}

type DBAudit struct {
	pool *pgxpool.Pool
}

func NewDBAudit(pool *pgxpool.Pool) *DBAudit {
	return &DBAudit{pool: pool}
}

func (a *DBAudit) Record(ctx context.Context, entry models.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	_, err = a.pool.Exec(ctx, InsertAuditQuery,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		metadata,
		entry.CreatedAt,
	)
	return err
}

func (a *DBAudit) ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLogEntry, error) {
	rows, err := a.pool.Query(ctx, GetAuditByTargetQuery, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e        models.AuditLogEntry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(entries) == 0 {
		return nil, models.ErrNoData
	}
	return entries, nil
}
