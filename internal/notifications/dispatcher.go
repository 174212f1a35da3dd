// Package notifications delivers user notifications off the request path.
// Delivery is best effort: failures are logged and never reach the caller.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	KindWithdrawal = "withdrawal"
	KindSecurity   = "security"
)

const deliverTimeout = 10 * time.Second

type Dispatcher struct {
	conn    DatabaseNotifications
	hook    *resty.Client
	hookURL string
	queue   chan models.Notification
	workers int
}

// NewDispatcher creates a dispatcher with a bounded queue. hookURL is optional;
// when set every notification is also POSTed there as JSON.
func NewDispatcher(conn DatabaseNotifications, hookURL string, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		conn:    conn,
		hookURL: hookURL,
		queue:   make(chan models.Notification, queueSize),
		workers: workers,
	}
	if hookURL != "" {
		d.hook = resty.New().
			SetTimeout(5*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "royaltypay-notify/1.0")
	}
	return d
}

// Notify never blocks; a full queue drops the notification with a warning.
func (d *Dispatcher) Notify(UID uuid.UUID, title, message, kind string) {
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    UID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	select {
	case d.queue <- n:
	default:
		logger.Log.Warn("notification queue full, dropping",
			zap.String("user_id", UID.String()),
			zap.String("title", title))
	}
}

func (d *Dispatcher) List(ctx context.Context, UID uuid.UUID) ([]models.Notification, error) {
	return d.conn.GetUserNotifications(ctx, UID)
}

// Run starts the workers and blocks until ctx is cancelled. Queued
// notifications are drained before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i := 0; i < d.workers; i++ {
		i := i
		g.Go(func() error {
			d.worker(ctx, i)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, idx int) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-ctx.Done():
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					logger.Log.Debug("notification worker stopped", zap.Int("worker", idx))
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := d.conn.InsertNotification(ctx, n); err != nil {
		logger.Log.Error("notification not stored",
			zap.String("user_id", n.UserID.String()),
			zap.String("title", n.Title),
			zap.Error(err))
	}
	if d.hook == nil {
		return
	}
	if err := d.post(ctx, n); err != nil {
		logger.Log.Error("notification webhook failed",
			zap.String("user_id", n.UserID.String()),
			zap.Error(err))
	}
}

func (d *Dispatcher) post(ctx context.Context, n models.Notification) error {
	resp, err := d.hook.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"id":         n.ID,
			"user_id":    n.UserID,
			"title":      n.Title,
			"message":    n.Message,
			"kind":       n.Kind,
			"created_at": n.CreatedAt,
		}).
		Post(d.hookURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("notification hook returned %d", resp.StatusCode())
	}
	return nil
}
