package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/users"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenTTL = 10 * time.Hour

type AService struct {
	uConn  users.DatabaseUsers
	wConn  wallets.DatabaseWallets
	conn   DatabaseAuth
	secret []byte
}

func NewAService(uConn users.DatabaseUsers, wConn wallets.DatabaseWallets, conn DatabaseAuth, secret []byte) *AService {
	return &AService{
		uConn:  uConn,
		wConn:  wConn,
		conn:   conn,
		secret: secret,
	}
}

func (a *AService) Register(ctx context.Context, newUser models.User) (token string, err error) {
	if newUser.Role == "" {
		newUser.Role = models.RoleArtist
	}
	if !models.IsSelfServiceRole(newUser.Role) {
		return "", models.ErrForbidden
	}
	if newUser.CreatedAt.IsZero() {
		newUser.CreatedAt = time.Now()
	}

	if err = a.uConn.CheckLoginPresence(ctx, newUser); err != nil {
		return "", err
	}

	newUser.ID, err = a.uConn.CreateUser(ctx, newUser)
	if err != nil {
		return "", err
	}

	if err = a.wConn.CreateUserWallet(ctx, newUser.ID); err != nil {
		return "", err
	}
	logger.Log.Info("user registered", zap.String("user_id", newUser.ID.String()), zap.String("role", newUser.Role))

	return a.GetJWT(ctx, newUser)
}

func (a *AService) GetJWT(ctx context.Context, user models.User) (tokenString string, err error) {
	claims := &models.Claims{
		UserID: user.ID.String(),
		Login:  user.Login,
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(tokenTTL).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AService) Login(ctx context.Context, user models.User) (token string, err error) {
	found, err := a.conn.ValidateUserCredentials(ctx, user)
	if err != nil {
		logger.Log.Debug("can not validate user creds", zap.String("login", user.Login))
		return "", err
	}
	token, err = a.GetJWT(ctx, found)
	if err != nil {
		logger.Log.Debug("can not create JWT", zap.Error(err))
		return "", err
	}
	return token, nil
}

func (a *AService) ParseJWT(ctx context.Context, tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %v", token.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: malformed subject", models.ErrUnauthenticated)
	}
	return claims, nil
}
