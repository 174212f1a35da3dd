package users

import (
	"context"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
)

type UService struct {
	conn DatabaseUsers
}

func NewUService(conn DatabaseUsers) *UService {
	return &UService{conn: conn}
}

func (s *UService) GetProfile(ctx context.Context, UID uuid.UUID) (models.User, error) {
	return s.conn.GetUserByID(ctx, UID)
}
