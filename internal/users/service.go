package users

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
)

type UserService interface {
	GetProfile(ctx context.Context, UID uuid.UUID) (models.User, error)
}
