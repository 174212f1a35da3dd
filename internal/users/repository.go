package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	InsertUserQuery = `
						INSERT INTO users (login, password_hash, role, created_at)
						VALUES ($1, $2, $3, $4)
						RETURNING id;`
	SearchUserQuery     = `SELECT COUNT(*) FROM users WHERE login = $1;`
	GetUserByLoginQuery = `SELECT id, login, role, created_at FROM users WHERE login = $1;`
	GetUserByIDQuery    = `SELECT id, login, role, created_at FROM users WHERE id = $1;`
)

type DatabaseUsers interface {
	CreateUser(ctx context.Context, newUser models.User) (uuid.UUID, error)
	CheckLoginPresence(ctx context.Context, user models.User) error
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	GetUserByID(ctx context.Context, UID uuid.UUID) (models.User, error)
}

type DBUsers struct {
	pool *pgxpool.Pool
}

func NewDBUsers(pool *pgxpool.Pool) *DBUsers {
	return &DBUsers{pool: pool}
}

func (u *DBUsers) CreateUser(ctx context.Context, newUser models.User) (uuid.UUID, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newUser.Password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}
	var UID uuid.UUID
	err = u.pool.QueryRow(ctx, InsertUserQuery,
		newUser.Login,
		string(hashedPassword),
		newUser.Role,
		newUser.CreatedAt,
	).Scan(&UID)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, models.ErrUserAlreadyExists
		}
		return uuid.Nil, fmt.Errorf("%w: %v", models.ErrUserCreationFailed, err)
	}
	return UID, nil
}

func (u *DBUsers) CheckLoginPresence(ctx context.Context, user models.User) error {
	var count int
	err := u.pool.QueryRow(ctx, SearchUserQuery, user.Login).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check login presence: %w", err)
	}
	if count > 0 {
		return models.ErrUserAlreadyExists
	}
	return nil
}

func (u *DBUsers) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return u.getUser(ctx, GetUserByLoginQuery, login)
}

func (u *DBUsers) GetUserByID(ctx context.Context, UID uuid.UUID) (models.User, error) {
	return u.getUser(ctx, GetUserByIDQuery, UID)
}

func (u *DBUsers) getUser(ctx context.Context, query string, arg any) (models.User, error) {
	var user models.User
	err := u.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Login, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, models.ErrNoData
		}
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
