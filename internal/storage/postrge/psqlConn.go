package postrge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var timeouts = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}
var maxRetries = len(timeouts)

func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.SQLState(), "08") {
			return true
		}
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

type Connection struct {
	pool *pgxpool.Pool
}

func NewConnection(ctx context.Context, settings string) (*Connection, error) {
	logger.Log.Info("Connecting to database")
	config, err := pgxpool.ParseConfig(settings)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("can not connect with database: %w", err)
	}
	c := &Connection{pool: pool}
	logger.Log.Info("Database pool created")

	if err = c.ConnectCtx(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("access to database: %w", err)
	}
	if err = c.MigrateCtx(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	logger.Log.Info("Migration successful")
	return c, nil
}

func (c *Connection) ConnectCtx(ctx context.Context) error {
	var err error
	logger.Log.Info("Checking db accessibility")
	if c.pool == nil {
		return fmt.Errorf("no active connection with db")
	}
	for i := 0; i < maxRetries; i++ {
		err = c.pool.Ping(ctx)
		if err == nil {
			logger.Log.Info("Access - OK")
			return nil
		}
		if !isConnectionError(err) {
			return fmt.Errorf("can not access database: %w", err)
		}
		logger.Log.Info("can not access database", zap.Error(err))
		logger.Log.Info("retrying after timeout",
			zap.Duration("timeout", timeouts[i]),
			zap.Int("retry-count", i+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeouts[i]):
		}
	}
	return fmt.Errorf("can not access database after %d retries: %w", maxRetries, err)
}

func (c *Connection) MigrateCtx(ctx context.Context) error {
	logger.Log.Info("Migrating database")
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, MigrationQuery); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Connection) Close() {
	logger.Log.Info("Closing database connection gracefully")
	if c.pool != nil {
		c.pool.Close()
	}
}
