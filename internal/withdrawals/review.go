package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/audit"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/Fuonder/royaltypay.git/internal/risk"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var reviewable = []models.WithdrawalStatus{
	models.StatusPendingReview,
	models.StatusPendingDelay,
	models.StatusFlagged,
}

var reconcilable = []models.WithdrawalStatus{
	models.StatusProcessing,
	models.StatusTransferUnknown,
}

// Review applies an admin decision. Every action that reaches the store is
// audited, including an approval whose transfer then fails.
func (s *WDService) Review(ctx context.Context, in ReviewInput) (models.WithdrawalRequest, error) {
	if in.AdminID == uuid.Nil {
		return models.WithdrawalRequest{}, models.ErrUnauthenticated
	}
	var (
		w   models.WithdrawalRequest
		err error
	)
	adminID := in.AdminID
	notes := optional(in.AdminNotes)

	switch in.Action {
	case ActionApprove:
		w, err = s.approve(ctx, in)
	case ActionReject:
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			return models.WithdrawalRequest{}, models.ErrMissingRejectionReason
		}
		w, err = s.store.Transition(ctx, Transition{
			ID:            in.WithdrawalID,
			From:          reviewable,
			To:            models.StatusRejected,
			AdminID:       &adminID,
			AdminNotes:    notes,
			FailureReason: &reason,
			Ledger:        wallets.OutcomeRefunded,
			RefundFees:    s.opts.RefundFees,
		})
	case ActionFlag:
		w, err = s.store.Transition(ctx, Transition{
			ID:            in.WithdrawalID,
			From:          reviewable,
			To:            models.StatusFlagged,
			AdminID:       &adminID,
			AdminNotes:    notes,
			FailureReason: optional(in.Reason),
		})
	case ActionAddNote:
		if notes == nil {
			return models.WithdrawalRequest{}, models.ErrMissingAdminNotes
		}
		w, err = s.store.Transition(ctx, Transition{
			ID:         in.WithdrawalID,
			AdminID:    &adminID,
			AdminNotes: notes,
		})
	default:
		return models.WithdrawalRequest{}, models.ErrInvalidAction
	}

	if w.ID == uuid.Nil {
		return w, err
	}
	metadata := map[string]any{"input": in}
	if err != nil {
		metadata["error"] = err.Error()
	}
	s.record(ctx, in.AdminID, "withdrawal_"+string(in.Action), w, metadata)
	switch {
	case err != nil:
	case in.Action == ActionReject, in.Action == ActionFlag:
		s.notifyStatus(w)
	case in.Action == ActionAddNote:
		s.notifyNote(w)
	}
	logger.Log.Info("withdrawal reviewed",
		zap.String("id", w.ID.String()),
		zap.String("action", string(in.Action)),
		zap.String("admin", in.AdminID.String()),
		zap.String("status", string(w.Status)))
	return w, err
}

func (s *WDService) approve(ctx context.Context, in ReviewInput) (models.WithdrawalRequest, error) {
	current, err := s.store.Get(ctx, in.WithdrawalID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	method, err := s.methods.Get(ctx, current.UserID, current.PayoutMethodID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	// a fresh reference so a previously rejected attempt is not replayed by the provider
	ref := risk.Reference(s.now(), current.UserID)
	adminID := in.AdminID
	claimed, err := s.store.Transition(ctx, Transition{
		ID:           current.ID,
		From:         reviewable,
		To:           models.StatusDispatching,
		NewReference: &ref,
		AdminID:      &adminID,
		AdminNotes:   optional(in.AdminNotes),
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	return s.dispatch(ctx, claimed, method)
}

func (s *WDService) HandleTransferEvent(ctx context.Context, ev paystack.Event) (models.WithdrawalRequest, error) {
	t := Transition{
		Reference: ev.Data.Reference,
		From:      inFlight,
	}
	var action string
	switch ev.Event {
	case paystack.EventTransferSuccess:
		action = "withdrawal_transfer_success"
		t.To = models.StatusCompleted
		t.Ledger = wallets.OutcomeSpent
		if ev.Data.TransferCode != "" {
			code := ev.Data.TransferCode
			t.TransferCode = &code
		}
	case paystack.EventTransferFailed, paystack.EventTransferReversed:
		action = "withdrawal_transfer_" + strings.TrimPrefix(ev.Event, "transfer.")
		reason := fmt.Sprintf("provider reported %s", ev.Event)
		if ev.Data.Reason != "" {
			reason += ": " + ev.Data.Reason
		}
		t.To = models.StatusFailed
		t.FailureReason = &reason
		t.Ledger = wallets.OutcomeRefunded
		t.RefundFees = s.opts.RefundFees
	default:
		logger.Log.Debug("ignoring provider event", zap.String("event", ev.Event))
		return models.WithdrawalRequest{}, nil
	}
	if t.Reference == "" {
		return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
	}

	w, err := s.store.Transition(context.WithoutCancel(ctx), t)
	if errors.Is(err, models.ErrInvalidTransition) {
		return s.settleOutOfBand(ctx, ev, t)
	}
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	logger.Log.Info("provider event applied",
		zap.String("event", ev.Event),
		zap.String("id", w.ID.String()),
		zap.String("status", string(w.Status)))
	s.record(ctx, audit.SystemActor, action, w, map[string]any{"event": ev.Event, "transfer_code": ev.Data.TransferCode})
	s.notifyStatus(w)
	return w, nil
}

// settleOutOfBand handles an event for a row that has left the in-flight
// states. A success on a flagged row is booked as spent so it can no longer be
// refunded; a success on any other settled row is escalated.
func (s *WDService) settleOutOfBand(ctx context.Context, ev paystack.Event, t Transition) (models.WithdrawalRequest, error) {
	current, err := s.store.GetByReference(context.WithoutCancel(ctx), t.Reference)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if ev.Event != paystack.EventTransferSuccess {
		logger.Log.Info("duplicate or late provider event",
			zap.String("event", ev.Event),
			zap.String("reference", t.Reference),
			zap.String("status", string(current.Status)))
		return models.WithdrawalRequest{}, nil
	}

	if (Transition{From: inFlight}).Allows(current.Status) {
		// back in flight after an approve; apply the normal settlement
		return s.HandleTransferEvent(ctx, ev)
	}
	switch current.Status {
	case models.StatusCompleted:
		logger.Log.Info("duplicate provider event",
			zap.String("event", ev.Event),
			zap.String("reference", t.Reference))
		return models.WithdrawalRequest{}, nil
	case models.StatusFlagged:
		t.From = []models.WithdrawalStatus{models.StatusFlagged}
		w, err := s.store.Transition(context.WithoutCancel(ctx), t)
		if errors.Is(err, models.ErrInvalidTransition) {
			// an admin decided in between; start over from the new status
			return s.HandleTransferEvent(ctx, ev)
		}
		if err != nil {
			return models.WithdrawalRequest{}, err
		}
		logger.Log.Error("provider paid a flagged withdrawal",
			zap.String("id", w.ID.String()),
			zap.String("reference", w.Reference))
		s.record(ctx, audit.SystemActor, "withdrawal_reconciliation_required", w, map[string]any{
			"event":           ev.Event,
			"transfer_code":   ev.Data.TransferCode,
			"previous_status": current.Status,
		})
		s.notifyStatus(w)
		return w, nil
	default:
		logger.Log.Error("provider paid a withdrawal that is no longer in flight",
			zap.String("id", current.ID.String()),
			zap.String("reference", current.Reference),
			zap.String("status", string(current.Status)))
		s.record(ctx, audit.SystemActor, "withdrawal_reconciliation_required", current, map[string]any{
			"event":         ev.Event,
			"transfer_code": ev.Data.TransferCode,
		})
		return current, nil
	}
}

// Reconcile asks the provider for the real state of an in-flight transfer and
// settles the request accordingly.
func (s *WDService) Reconcile(ctx context.Context, actorID, id uuid.UUID) (models.WithdrawalRequest, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if !(Transition{From: reconcilable}).Allows(w.Status) {
		return w, fmt.Errorf("%w: status is %s", models.ErrInvalidTransition, w.Status)
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	res, err := s.provider.VerifyTransfer(tctx, w.Reference)
	cancel()

	t := Transition{ID: w.ID, From: []models.WithdrawalStatus{w.Status}}
	switch {
	case err != nil:
		var terr *models.TransferError
		if !errors.As(err, &terr) || terr.Kind != models.TransferRejected || w.Status != models.StatusTransferUnknown {
			return w, err
		}
		// the provider has no such transfer, so nothing was paid out
		reason := "transfer not found at provider: " + terr.Message
		t.To = models.StatusFlagged
		t.FailureReason = &reason
	case res.Status == paystack.TransferStatusSuccess:
		t.To = models.StatusCompleted
		t.Ledger = wallets.OutcomeSpent
		t.TransferCode = optional(res.TransferCode)
	case res.Failed():
		reason := "provider reported " + res.Status
		t.To = models.StatusFailed
		t.FailureReason = &reason
		t.Ledger = wallets.OutcomeRefunded
		t.RefundFees = s.opts.RefundFees
	case w.Status == models.StatusTransferUnknown:
		t.To = models.StatusProcessing
		t.TransferCode = optional(res.TransferCode)
	default:
		return w, nil
	}

	updated, err := s.store.Transition(context.WithoutCancel(ctx), t)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return s.store.Get(ctx, id)
		}
		return w, err
	}
	s.record(ctx, actorID, "withdrawal_reconcile", updated, map[string]any{
		"previous_status": w.Status,
		"provider_status": res.Status,
	})
	s.notifyStatus(updated)
	return updated, nil
}

// ProcessDue dispatches delayed requests whose window has passed. It returns
// how many were claimed.
func (s *WDService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ClaimDue(ctx, now, s.opts.DueBatch)
	if err != nil {
		return 0, err
	}
	for _, w := range due {
		method, err := s.methods.Get(ctx, w.UserID, w.PayoutMethodID)
		if err != nil {
			_, _ = s.persistFailure(ctx, w, []models.WithdrawalStatus{models.StatusDispatching},
				models.StatusFlagged, "withdrawal_transfer_rejected",
				fmt.Errorf("payout method unavailable: %w", err))
			continue
		}
		s.record(ctx, audit.SystemActor, "withdrawal_scheduled_dispatch", w, nil)
		if _, err := s.dispatch(ctx, w, method); err != nil {
			logger.Log.Warn("scheduled dispatch did not complete",
				zap.String("id", w.ID.String()),
				zap.Error(err))
		}
	}
	return len(due), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
