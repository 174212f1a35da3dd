package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
)

const authCookie = "auth_token"

type callerKey struct{}

type Caller struct {
	ID    uuid.UUID
	Login string
	Role  string
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// AuthMiddleware resolves the caller from the auth_token cookie or a bearer token.
func (h Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		logger.Log.Debug("Auth middleware")

		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			SendError(rw, models.ErrUnauthenticated, nil)
			return
		}
		claims, err := h.authSrv.ParseJWT(r.Context(), tokenString)
		if err != nil {
			SendError(rw, models.ErrUnauthenticated, nil)
			return
		}
		UID, err := uuid.Parse(claims.UserID)
		if err != nil {
			SendError(rw, models.ErrUnauthenticated, nil)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, Caller{ID: UID, Login: claims.Login, Role: claims.Role})
		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		if !ok {
			SendError(rw, models.ErrUnauthenticated, nil)
			return
		}
		if c.Role != models.RoleAdmin {
			SendError(rw, models.ErrForbidden, nil)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(authCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
