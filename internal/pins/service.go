package pins

import (
	"context"

	"github.com/google/uuid"
)

type PinService interface {
	// Verify authorises a payout. It has no side effects.
	Verify(ctx context.Context, UID uuid.UUID, pin string) error
	SetPin(ctx context.Context, UID uuid.UUID, current, next string) error
	LockPayouts(ctx context.Context, UID uuid.UUID) error
}
