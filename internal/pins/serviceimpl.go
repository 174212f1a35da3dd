package pins

import (
	"context"
	"errors"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type PService struct {
	conn       DatabasePins
	lockPeriod time.Duration
	cost       int
	now        func() time.Time
}

func NewPService(conn DatabasePins, lockPeriod time.Duration) *PService {
	return &PService{
		conn:       conn,
		lockPeriod: lockPeriod,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *PService) Verify(ctx context.Context, UID uuid.UUID, pin string) error {
	if UID == uuid.Nil {
		return models.ErrUnauthenticated
	}
	rec, err := s.conn.GetPin(ctx, UID)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			return models.ErrPinNotConfigured
		}
		return err
	}
	if !rec.Configured() {
		return models.ErrPinNotConfigured
	}
	// Lock is checked before the hash so a locked account leaks nothing about the PIN.
	if rec.PayoutLockUntil != nil && rec.PayoutLockUntil.After(s.now()) {
		return &models.PayoutLockedError{Until: *rec.PayoutLockUntil}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PinHash), []byte(pin)); err != nil {
		logger.Log.Info("transaction pin mismatch", zap.String("user_id", UID.String()))
		return models.ErrInvalidPin
	}
	return nil
}

func (s *PService) SetPin(ctx context.Context, UID uuid.UUID, current, next string) error {
	if UID == uuid.Nil {
		return models.ErrUnauthenticated
	}
	if !validPin(next) {
		return models.ErrInvalidPinFormat
	}

	rec, err := s.conn.GetPin(ctx, UID)
	if err != nil && !errors.Is(err, models.ErrNoData) {
		return err
	}

	var lockUntil *time.Time
	if rec.Configured() {
		if bcrypt.CompareHashAndPassword([]byte(rec.PinHash), []byte(current)) != nil {
			return models.ErrInvalidPin
		}
		until := s.now().Add(s.lockPeriod)
		lockUntil = &until
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	if err := s.conn.SavePin(ctx, UID, string(hash), lockUntil); err != nil {
		return err
	}
	logger.Log.Info("transaction pin saved",
		zap.String("user_id", UID.String()),
		zap.Bool("changed", lockUntil != nil))
	return nil
}

func (s *PService) LockPayouts(ctx context.Context, UID uuid.UUID) error {
	until := s.now().Add(s.lockPeriod)
	if err := s.conn.ExtendLock(ctx, UID, until); err != nil {
		return err
	}
	logger.Log.Info("payouts locked", zap.String("user_id", UID.String()), zap.Time("until", until))
	return nil
}

func validPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
