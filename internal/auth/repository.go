package auth

import (
	"context"
	"errors"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	GetUserCredentialsQuery = `SELECT id, login, role, password_hash FROM users WHERE login = $1;`
)

type DatabaseAuth interface {
	ValidateUserCredentials(ctx context.Context, user models.User) (models.User, error)
}

type DBAuth struct {
	pool *pgxpool.Pool
}

func NewDBAuth(pool *pgxpool.Pool) *DBAuth {
	return &DBAuth{pool: pool}
}

func (a *DBAuth) ValidateUserCredentials(ctx context.Context, user models.User) (models.User, error) {
	var (
		found        models.User
		hashPassword string
	)
	err := a.pool.QueryRow(ctx, GetUserCredentialsQuery, user.Login).Scan(&found.ID, &found.Login, &found.Role, &hashPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, models.ErrWrongCredentials
		}
		return models.User{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(hashPassword), []byte(user.Password))
	if err != nil {
		return models.User{}, models.ErrWrongCredentials
	}
	return found, nil
}
