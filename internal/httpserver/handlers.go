package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/auth"
	"github.com/Fuonder/royaltypay.git/internal/dbservices"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/payoutmethods"
	"github.com/Fuonder/royaltypay.git/internal/pins"
	"github.com/Fuonder/royaltypay.git/internal/users"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/Fuonder/royaltypay.git/internal/withdrawals"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// requestTimeout must stay above the transfer timeout: an instant withdrawal
// waits for the provider inside the request.
const requestTimeout = 45 * time.Second

type AuditReader interface {
	ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLogEntry, error)
}

type NotificationLister interface {
	List(ctx context.Context, UID uuid.UUID) ([]models.Notification, error)
}

type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) error
}

type Handlers struct {
	userSrv       users.UserService
	walletSrv     wallets.WalletService
	authSrv       auth.AuthService
	pinSrv        pins.PinService
	payoutSrv     payoutmethods.PayoutMethodService
	withdrawalSrv withdrawals.WithdrawalService
	auditRepo     AuditReader
	inbox         NotificationLister
	webhook       SignatureVerifier
	// trustProxy enables middleware.RealIP; only safe behind a proxy that
	// overwrites the forwarding headers.
	trustProxy bool
}

func NewHandlers(DBServices *dbservices.DatabaseServices, webhook SignatureVerifier, trustProxy bool) *Handlers {
	return &Handlers{userSrv: DBServices.UserSrv,
		walletSrv:     DBServices.WalletSrv,
		authSrv:       DBServices.AuthSrv,
		pinSrv:        DBServices.PinSrv,
		payoutSrv:     DBServices.PayoutSrv,
		withdrawalSrv: DBServices.WithdrawalSrv,
		auditRepo:     DBServices.AuditRepo,
		inbox:         DBServices.Notifier,
		webhook:       webhook,
		trustProxy:    trustProxy}
}

type initiateRequest struct {
	PayoutMethodID uuid.UUID       `json:"payout_method_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
	Pin            string          `json:"pin"`
}

type setPinRequest struct {
	CurrentPin string `json:"current_pin,omitempty"`
	Pin        string `json:"pin"`
}

func (h Handlers) RegisterHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("RegisterHandler called")
	var newUser models.User
	if err := decodeJSON(r, &newUser); err != nil {
		SendError(rw, err, nil)
		return
	}
	if newUser.Login == "" || newUser.Password == "" {
		SendError(rw, fmt.Errorf("%w: login and password are required", errMalformedRequest), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	token, err := h.authSrv.Register(ctx, newUser)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	setAuthCookie(rw, token)
	SendResponse(rw, http.StatusOK, map[string]string{"token": token})
}

func (h Handlers) LoginHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("LoginHandler called")
	var user models.User
	if err := decodeJSON(r, &user); err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	token, err := h.authSrv.Login(ctx, user)
	if err != nil {
		logger.Log.Debug("login failed", zap.String("login", user.Login), zap.Error(err))
		SendError(rw, err, nil)
		return
	}
	setAuthCookie(rw, token)
	SendResponse(rw, http.StatusOK, map[string]string{"token": token})
}

func (h Handlers) GetProfileHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetProfileHandler called")
	c, _ := CallerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := h.userSrv.GetProfile(ctx, c.ID)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, user)
}

func (h Handlers) GetBalanceHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetBalanceHandler called")
	c, _ := CallerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	wallet, err := h.walletSrv.GetUserBalance(ctx, c.ID)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, wallet)
}

func (h Handlers) SetPinHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("SetPinHandler called")
	c, _ := CallerFromContext(r.Context())
	var req setPinRequest
	if err := decodeJSON(r, &req); err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := h.pinSrv.SetPin(ctx, c.ID, req.CurrentPin, req.Pin); err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, nil)
}

func (h Handlers) GetPayoutMethodsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetPayoutMethodsHandler called")
	c, _ := CallerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	methods, err := h.payoutSrv.List(ctx, c.ID)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			SendResponse(rw, http.StatusOK, []models.PayoutMethod{})
			return
		}
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, methods)
}

func (h Handlers) PostPayoutMethodHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PostPayoutMethodHandler called")
	c, _ := CallerFromContext(r.Context())
	var in payoutmethods.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	pm, err := h.payoutSrv.Create(ctx, c.ID, in)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusCreated, pm)
}

func (h Handlers) PostWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PostWithdrawalHandler called")
	c, _ := CallerFromContext(r.Context())
	var req initiateRequest
	if err := decodeJSON(r, &req); err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	w, err := h.withdrawalSrv.Initiate(ctx, withdrawals.InitiateInput{
		UserID:         c.ID,
		Amount:         req.Amount,
		PayoutMethodID: req.PayoutMethodID,
		Pin:            req.Pin,
		Description:    req.Description,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		if w.ID != uuid.Nil {
			SendError(rw, err, w)
			return
		}
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusCreated, w)
}

func (h Handlers) GetWithdrawalsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetWithdrawalsHandler called")
	c, _ := CallerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	list, err := h.withdrawalSrv.ListByUser(ctx, c.ID)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, list)
}

func (h Handlers) GetNotificationsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetNotificationsHandler called")
	c, _ := CallerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	list, err := h.inbox.List(ctx, c.ID)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			SendResponse(rw, http.StatusOK, []models.Notification{})
			return
		}
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, list)
}

func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content type must be application/json", errMalformedRequest)
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	return nil
}

func setAuthCookie(rw http.ResponseWriter, token string) {
	http.SetCookie(rw, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

// clientIP reads RemoteAddr, which middleware.RealIP rewrites when the proxy is trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
