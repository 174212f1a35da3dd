package auth

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/models"
)

type AuthService interface {
	Register(ctx context.Context, newUser models.User) (token string, err error)
	Login(ctx context.Context, user models.User) (token string, err error)
	GetJWT(ctx context.Context, user models.User) (tokenString string, err error)
	ParseJWT(ctx context.Context, tokenString string) (*models.Claims, error)
}
