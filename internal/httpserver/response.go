package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"go.uber.org/zap"
)

var errMalformedRequest = errors.New("malformed request")

type envelope struct {
	Success     bool       `json:"success"`
	Data        any        `json:"data,omitempty"`
	Error       string     `json:"error,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func SendResponse(rw http.ResponseWriter, status int, data any) {
	writeEnvelope(rw, status, envelope{Success: true, Data: data})
}

// SendError maps err onto a status code. data, when non-nil, is returned
// alongside the error (a withdrawal persisted before its transfer failed).
func SendError(rw http.ResponseWriter, err error, data any) {
	status := statusFor(err)
	body := envelope{Success: false, Data: data, Error: err.Error()}
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed", zap.Error(err))
		body.Error = http.StatusText(status)
	}
	var locked *models.PayoutLockedError
	if errors.As(err, &locked) {
		until := locked.Until.UTC()
		body.LockedUntil = &until
	}
	writeEnvelope(rw, status, body)
}

func writeEnvelope(rw http.ResponseWriter, status int, body envelope) {
	resp, err := json.Marshal(body)
	if err != nil {
		logger.Log.Error("can not encode response", zap.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_, _ = rw.Write(resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated),
		errors.Is(err, models.ErrWrongCredentials),
		errors.Is(err, models.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrInvalidPin):
		return http.StatusForbidden
	case errors.Is(err, models.ErrPinNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, models.ErrPayoutLocked):
		return http.StatusLocked
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrPayoutMethodNotFound),
		errors.Is(err, models.ErrWithdrawalNotFound),
		errors.Is(err, models.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, errMalformedRequest),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrMissingRejectionReason),
		errors.Is(err, models.ErrMissingAdminNotes),
		errors.Is(err, models.ErrInvalidPinFormat),
		errors.Is(err, models.ErrInvalidPayoutMethod):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUserAlreadyExists),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrTransferRejected):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrTransferUnknown):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
