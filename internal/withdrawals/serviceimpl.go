package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/audit"
	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/notifications"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/Fuonder/royaltypay.git/internal/risk"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTransferTimeout = 15 * time.Second
	defaultDueBatch        = 50
	defaultCurrency        = "NGN"
)

var inFlight = []models.WithdrawalStatus{
	models.StatusPending,
	models.StatusDispatching,
	models.StatusProcessing,
	models.StatusTransferUnknown,
}

type WDService struct {
	store    DatabaseWithdrawals
	pins     PinVerifier
	methods  PayoutMethodFinder
	provider TransferProvider
	notifier Notifier
	audit    AuditSink
	opts     Options
	now      func() time.Time
}

func NewWDService(store DatabaseWithdrawals,
	pins PinVerifier,
	methods PayoutMethodFinder,
	provider TransferProvider,
	notifier Notifier,
	auditSink AuditSink,
	opts Options) *WDService {
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = defaultTransferTimeout
	}
	if opts.DueBatch <= 0 {
		opts.DueBatch = defaultDueBatch
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	return &WDService{
		store:    store,
		pins:     pins,
		methods:  methods,
		provider: provider,
		notifier: notifier,
		audit:    auditSink,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *WDService) Initiate(ctx context.Context, in InitiateInput) (models.WithdrawalRequest, error) {
	if in.UserID == uuid.Nil {
		return models.WithdrawalRequest{}, models.ErrUnauthenticated
	}
	if err := s.pins.Verify(ctx, in.UserID, in.Pin); err != nil {
		return models.WithdrawalRequest{}, err
	}
	if !in.Amount.Equal(in.Amount.Round(2)) || !risk.Payable(in.Amount) {
		return models.WithdrawalRequest{}, models.ErrInvalidAmount
	}
	method, err := s.methods.Get(ctx, in.UserID, in.PayoutMethodID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	prior, err := s.store.LatestProcessing(ctx, in.UserID)
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("load prior withdrawal: %w", err)
	}

	now := s.now()
	input := risk.Input{
		Amount:      in.Amount,
		Fingerprint: risk.Fingerprint{IP: in.IPAddress, UserAgent: in.UserAgent},
		Now:         now,
	}
	if prior != nil {
		input.Prior = &risk.Fingerprint{IP: prior.IPAddress, UserAgent: prior.UserAgent}
	}
	assessment := risk.Classify(input)

	w := models.WithdrawalRequest{
		ID:             uuid.New(),
		UserID:         in.UserID,
		PayoutMethodID: method.ID,
		Amount:         in.Amount,
		Fee:            risk.Fee(in.Amount),
		NetAmount:      risk.NetAmount(in.Amount),
		Currency:       s.opts.Currency,
		Description:    in.Description,
		Status:         assessment.Status,
		Tier:           assessment.Tier,
		Anomalous:      assessment.Anomalous,
		Reference:      risk.Reference(now, in.UserID),
		ScheduledFor:   assessment.ScheduledFor,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	w, err = s.store.Create(ctx, w)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	logger.Log.Info("withdrawal created",
		zap.String("id", w.ID.String()),
		zap.String("status", string(w.Status)),
		zap.Int("tier", int(w.Tier)),
		zap.Bool("anomalous", w.Anomalous))

	if w.Anomalous {
		s.record(ctx, audit.SystemActor, "withdrawal_anomaly_detected", w, map[string]any{
			"ip_address":       w.IPAddress,
			"user_agent":       w.UserAgent,
			"prior_ip_address": prior.IPAddress,
			"prior_user_agent": prior.UserAgent,
		})
	}
	if w.Tier != models.TierInstant {
		s.notifyStatus(w)
		return w, nil
	}
	return s.dispatch(ctx, w, method)
}

// dispatch sends w to the provider and persists the outcome. w must already
// be in a status that only this caller can move (pending or dispatching).
func (s *WDService) dispatch(ctx context.Context, w models.WithdrawalRequest, method models.PayoutMethod) (models.WithdrawalRequest, error) {
	tctx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	res, err := s.provider.InitiateTransfer(tctx, paystack.TransferRequest{
		AmountMinor: paystack.ToMinor(w.NetAmount),
		Recipient:   method.RecipientCode,
		Reference:   w.Reference,
		Reason:      transferReason(w),
		Currency:    w.Currency,
	})
	cancel()

	// the provider has been called; the outcome is persisted even if the caller went away
	pctx := context.WithoutCancel(ctx)
	from := []models.WithdrawalStatus{w.Status}

	if err != nil {
		var terr *models.TransferError
		if errors.As(err, &terr) && terr.Kind == models.TransferRejected {
			return s.persistFailure(pctx, w, from, models.StatusFlagged, "withdrawal_transfer_rejected", err)
		}
		if !errors.Is(err, models.ErrTransferUnknown) {
			err = fmt.Errorf("%w: %v", models.ErrTransferUnknown, err)
		}
		return s.persistFailure(pctx, w, from, models.StatusTransferUnknown, "withdrawal_transfer_unknown", err)
	}

	code := res.TransferCode
	updated, uerr := s.store.Transition(pctx, Transition{
		ID:           w.ID,
		From:         from,
		To:           models.StatusProcessing,
		TransferCode: &code,
	})
	if uerr != nil {
		if errors.Is(uerr, models.ErrInvalidTransition) {
			// a provider callback got there first
			if current, gerr := s.store.Get(pctx, w.ID); gerr == nil {
				return current, nil
			}
		}
		logger.Log.Error("transfer accepted but status not persisted",
			zap.String("id", w.ID.String()),
			zap.String("reference", w.Reference),
			zap.String("transfer_code", code),
			zap.Error(uerr))
		s.record(pctx, audit.SystemActor, "withdrawal_reconciliation_required", w, map[string]any{
			"transfer_code": code,
			"error":         uerr.Error(),
		})
		w.Status = models.StatusProcessing
		w.TransferCode = code
		return w, nil
	}
	logger.Log.Info("transfer initiated",
		zap.String("id", updated.ID.String()),
		zap.String("reference", updated.Reference),
		zap.String("transfer_code", code))
	s.notifyStatus(updated)
	return updated, nil
}

func (s *WDService) persistFailure(ctx context.Context,
	w models.WithdrawalRequest,
	from []models.WithdrawalStatus,
	to models.WithdrawalStatus,
	action string,
	cause error) (models.WithdrawalRequest, error) {
	reason := cause.Error()
	updated, err := s.store.Transition(ctx, Transition{
		ID:            w.ID,
		From:          from,
		To:            to,
		FailureReason: &reason,
	})
	if err != nil {
		logger.Log.Error("failed to persist transfer failure",
			zap.String("id", w.ID.String()),
			zap.String("target_status", string(to)),
			zap.Error(err))
		return w, cause
	}
	logger.Log.Warn("transfer not completed",
		zap.String("id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
		zap.Error(cause))
	s.record(ctx, audit.SystemActor, action, updated, map[string]any{"error": reason})
	s.notifyStatus(updated)
	return updated, cause
}

func (s *WDService) Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	return s.store.Get(ctx, id)
}

func (s *WDService) ListByUser(ctx context.Context, UID uuid.UUID) ([]models.WithdrawalRequest, error) {
	return s.store.ListByUser(ctx, UID)
}

func (s *WDService) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	return s.store.ListByStatus(ctx, status)
}

func (s *WDService) record(ctx context.Context, actor uuid.UUID, action string, w models.WithdrawalRequest, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["status"] = w.Status
	metadata["reference"] = w.Reference
	metadata["result"] = w
	err := s.audit.Record(context.WithoutCancel(ctx), models.AuditLogEntry{
		ID:         uuid.New(),
		ActorID:    actor,
		Action:     action,
		TargetType: audit.TargetWithdrawal,
		TargetID:   w.ID.String(),
		Metadata:   metadata,
		CreatedAt:  s.now(),
	})
	if err != nil {
		logger.Log.Error("failed to write audit entry",
			zap.String("action", action),
			zap.String("id", w.ID.String()),
			zap.Error(err))
	}
}

func (s *WDService) notifyStatus(w models.WithdrawalRequest) {
	amount := fmt.Sprintf("%s %s", w.NetAmount.StringFixed(2), w.Currency)
	var title, message string
	switch w.Status {
	case models.StatusPendingDelay:
		title = "Withdrawal scheduled"
		message = fmt.Sprintf("Your withdrawal of %s will be sent after %s.", amount, w.ScheduledFor.UTC().Format(time.RFC1123))
	case models.StatusPendingReview:
		title = "Withdrawal under review"
		message = fmt.Sprintf("Your withdrawal of %s is awaiting review.", amount)
	case models.StatusProcessing:
		title = "Withdrawal processing"
		message = fmt.Sprintf("Your withdrawal of %s has been sent to your bank.", amount)
	case models.StatusCompleted:
		title = "Withdrawal completed"
		message = fmt.Sprintf("Your withdrawal of %s has been paid.", amount)
	case models.StatusFailed:
		title = "Withdrawal failed"
		message = fmt.Sprintf("Your withdrawal of %s failed and the funds were returned to your balance.", amount)
	case models.StatusRejected:
		title = "Withdrawal rejected"
		message = fmt.Sprintf("Your withdrawal of %s was rejected: %s", amount, w.FailureReason)
	case models.StatusFlagged:
		title = "Withdrawal on hold"
		message = fmt.Sprintf("Your withdrawal of %s is on hold pending a manual check.", amount)
	default:
		return
	}
	s.notifier.Notify(w.UserID, title, message, notifications.KindWithdrawal)
}

func (s *WDService) notifyNote(w models.WithdrawalRequest) {
	s.notifier.Notify(w.UserID, "Withdrawal updated",
		fmt.Sprintf("An administrator added a note to your withdrawal %s.", w.Reference),
		notifications.KindWithdrawal)
}

func transferReason(w models.WithdrawalRequest) string {
	if w.Description != "" {
		return w.Description
	}
	return "Royalty withdrawal " + w.Reference
}
