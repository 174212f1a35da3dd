package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Fuonder/royaltypay.git/internal/audit"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/withdrawals"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h Handlers) ReviewWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ReviewWithdrawalHandler called")
	c, _ := CallerFromContext(r.Context())
	var in withdrawals.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		SendError(rw, err, nil)
		return
	}
	in.AdminID = c.ID

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	w, err := h.withdrawalSrv.Review(ctx, in)
	if err != nil {
		if w.ID != uuid.Nil {
			SendError(rw, err, w)
			return
		}
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, w)
}

func (h Handlers) ListWithdrawalsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ListWithdrawalsHandler called")
	status := models.StatusPendingReview
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := models.ParseWithdrawalStatus(raw)
		if !ok {
			SendError(rw, fmt.Errorf("%w: unknown status %q", errMalformedRequest, raw), nil)
			return
		}
		status = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	list, err := h.withdrawalSrv.ListByStatus(ctx, status)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, list)
}

func (h Handlers) ReconcileWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ReconcileWithdrawalHandler called")
	c, _ := CallerFromContext(r.Context())
	id, err := uuidParam(r, "id")
	if err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	w, err := h.withdrawalSrv.Reconcile(ctx, c.ID, id)
	if err != nil {
		if w.ID != uuid.Nil {
			SendError(rw, err, w)
			return
		}
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, w)
}

func (h Handlers) GetWithdrawalAuditHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetWithdrawalAuditHandler called")
	id, err := uuidParam(r, "id")
	if err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if _, err := h.withdrawalSrv.Get(ctx, id); err != nil {
		SendError(rw, err, nil)
		return
	}
	entries, err := h.auditRepo.ListByTarget(ctx, audit.TargetWithdrawal, id.String())
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, entries)
}

func (h Handlers) CreditWalletHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("CreditWalletHandler called")
	UID, err := uuidParam(r, "userID")
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	var req creditRequest
	if err := decodeJSON(r, &req); err != nil {
		SendError(rw, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	wallet, err := h.walletSrv.CreditEarnings(ctx, UID, req.Amount)
	if err != nil {
		SendError(rw, err, nil)
		return
	}
	SendResponse(rw, http.StatusOK, wallet)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errMalformedRequest, name)
	}
	return id, nil
}
