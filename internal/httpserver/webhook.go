package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// PaystackWebhookHandler applies transfer events. A non-2xx answer makes the
// provider redeliver, so only failures worth retrying return one.
func (h Handlers) PaystackWebhookHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PaystackWebhookHandler called")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		SendError(rw, fmt.Errorf("%w: %v", errMalformedRequest, err), nil)
		return
	}
	if err := h.webhook.VerifySignature(body, r.Header.Get(paystack.SignatureHeader)); err != nil {
		logger.Log.Warn("rejected webhook with bad signature", zap.String("remote", r.RemoteAddr))
		SendError(rw, err, nil)
		return
	}
	ev, err := paystack.ParseEvent(body)
	if err != nil {
		SendError(rw, fmt.Errorf("%w: %v", errMalformedRequest, err), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if _, err := h.withdrawalSrv.HandleTransferEvent(ctx, ev); err != nil {
		logger.Log.Error("can not apply provider event",
			zap.String("event", ev.Event),
			zap.String("reference", ev.Data.Reference),
			zap.Error(err))
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, nil)
}
