package withdrawals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/google/uuid"
)

func reviewFixture(t *testing.T, amount string) (*fixture, models.WithdrawalRequest) {
	t.Helper()
	f := newFixture("100000")
	w, err := f.svc.Initiate(context.Background(), f.input(amount))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	return f, w
}

func TestReviewReject(t *testing.T) {
	for _, amount := range []string{"60000", "20000"} {
		t.Run(amount, func(t *testing.T) {
			f, w := reviewFixture(t, amount)

			got, err := f.svc.Review(context.Background(), ReviewInput{
				AdminID:      f.admin,
				WithdrawalID: w.ID,
				Action:       ActionReject,
				Reason:       "account name mismatch",
			})
			if err != nil {
				t.Fatalf("Review: %v", err)
			}
			if got.Status != models.StatusRejected || got.FailureReason != "account name mismatch" {
				t.Fatalf("status %s reason %q", got.Status, got.FailureReason)
			}
			if got.AdminID == nil || *got.AdminID != f.admin {
				t.Fatal("admin id not recorded")
			}
			b := f.store.balance(f.user)
			want := dec("100000").Sub(w.Amount).Add(w.NetAmount)
			if !b.Available.Equal(want) || !b.Pending.IsZero() {
				t.Fatalf("available %s pending %s, want %s/0", b.Available, b.Pending, want)
			}
			if actions := f.audit.actions(w.ID); actions[len(actions)-1] != "withdrawal_reject" {
				t.Fatalf("audit actions %v", actions)
			}
			if f.provider.calls() != 0 {
				t.Fatal("reject must not reach the provider")
			}
		})
	}
}

func TestReviewRejectRefundsFeesWhenConfigured(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	f.svc.opts.RefundFees = true

	_, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionReject, Reason: "duplicate",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if b := f.store.balance(f.user); !b.Available.Equal(dec("100000")) {
		t.Fatalf("available %s, want full refund", b.Available)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	before := f.store.balance(f.user)

	_, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionReject, Reason: "   ",
	})
	if !errors.Is(err, models.ErrMissingRejectionReason) {
		t.Fatalf("got %v, want ErrMissingRejectionReason", err)
	}
	if got := f.store.row(w.ID).Status; got != models.StatusPendingReview {
		t.Fatalf("status %s, want pending_review", got)
	}
	after := f.store.balance(f.user)
	if !after.Available.Equal(before.Available) || !after.Pending.Equal(before.Pending) {
		t.Fatal("ledger changed")
	}
	if actions := f.audit.actions(w.ID); len(actions) != 0 {
		t.Fatalf("no audit expected, got %v", actions)
	}
}

func TestReviewApprove(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	f.now = f.now.Add(time.Hour)

	got, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionApprove, AdminNotes: "verified by phone",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != models.StatusProcessing || got.TransferCode == "" {
		t.Fatalf("status %s code %q, want processing with code", got.Status, got.TransferCode)
	}
	if got.Reference == w.Reference {
		t.Fatal("approval must dispatch under a fresh reference")
	}
	if got.AdminNotes != "verified by phone" {
		t.Fatalf("notes %q", got.AdminNotes)
	}
	if f.provider.initiated[0].AmountMinor != 5995000 {
		t.Fatalf("amount %d, want net 59950 in minor units", f.provider.initiated[0].AmountMinor)
	}
	if actions := f.audit.actions(w.ID); actions[len(actions)-1] != "withdrawal_approve" {
		t.Fatalf("audit actions %v", actions)
	}
}

func TestReviewApproveProviderRejected(t *testing.T) {
	f, w := reviewFixture(t, "20000")
	f.provider.transfer = func(paystack.TransferRequest) (paystack.TransferResult, error) {
		return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferRejected, Message: "Insufficient float"}
	}

	got, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionApprove,
	})
	if !errors.Is(err, models.ErrTransferRejected) {
		t.Fatalf("got %v, want ErrTransferRejected", err)
	}
	if got.Status != models.StatusFlagged {
		t.Fatalf("status %s, want flagged", got.Status)
	}
	b := f.store.balance(f.user)
	if !b.Pending.Equal(dec("20000")) || !b.TotalWithdrawn.IsZero() {
		t.Fatalf("ledger must be untouched: %+v", b)
	}

	f.provider.transfer = nil
	f.now = f.now.Add(time.Minute)
	retried, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionApprove,
	})
	if err != nil || retried.Status != models.StatusProcessing {
		t.Fatalf("retry from flagged: %v status %s", err, retried.Status)
	}
}

func TestReviewFlagAndNote(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	before := f.store.balance(f.user)

	flagged, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionFlag,
	})
	if err != nil || flagged.Status != models.StatusFlagged {
		t.Fatalf("flag: %v status %s", err, flagged.Status)
	}

	noted, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionAddNote, AdminNotes: "called the label",
	})
	if err != nil {
		t.Fatalf("add_note: %v", err)
	}
	if noted.Status != models.StatusFlagged || noted.AdminNotes != "called the label" {
		t.Fatalf("status %s notes %q", noted.Status, noted.AdminNotes)
	}

	_, err = f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionAddNote,
	})
	if !errors.Is(err, models.ErrMissingAdminNotes) {
		t.Fatalf("got %v, want ErrMissingAdminNotes", err)
	}

	after := f.store.balance(f.user)
	if !after.Available.Equal(before.Available) || !after.Pending.Equal(before.Pending) {
		t.Fatal("flag and add_note must not touch the ledger")
	}
	actions := f.audit.actions(w.ID)
	if len(actions) != 2 || actions[0] != "withdrawal_flag" || actions[1] != "withdrawal_add_note" {
		t.Fatalf("audit actions %v", actions)
	}

	entry, _ := f.audit.last(w.ID, "withdrawal_flag")
	in, ok := entry.Metadata["input"].(ReviewInput)
	if !ok || in.Action != ActionFlag || in.WithdrawalID != w.ID {
		t.Fatalf("flag entry input %+v", entry.Metadata["input"])
	}
	result, ok := entry.Metadata["result"].(models.WithdrawalRequest)
	if !ok || result.ID != w.ID || result.Status != models.StatusFlagged {
		t.Fatalf("flag entry result %+v", entry.Metadata["result"])
	}
	entry, _ = f.audit.last(w.ID, "withdrawal_add_note")
	if result, ok := entry.Metadata["result"].(models.WithdrawalRequest); !ok || result.AdminNotes != "called the label" {
		t.Fatalf("add_note entry result %+v", entry.Metadata["result"])
	}

	titles := f.notifier.titles(f.user)
	if got := titles[len(titles)-2:]; got[0] != "Withdrawal on hold" || got[1] != "Withdrawal updated" {
		t.Fatalf("notifications %v", titles)
	}
}

func TestReviewInvalidInput(t *testing.T) {
	f, w := reviewFixture(t, "60000")

	_, err := f.svc.Review(context.Background(), ReviewInput{AdminID: f.admin, WithdrawalID: w.ID, Action: "cancel"})
	if !errors.Is(err, models.ErrInvalidAction) {
		t.Fatalf("got %v, want ErrInvalidAction", err)
	}
	_, err = f.svc.Review(context.Background(), ReviewInput{WithdrawalID: w.ID, Action: ActionFlag})
	if !errors.Is(err, models.ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
	_, err = f.svc.Review(context.Background(), ReviewInput{AdminID: f.admin, WithdrawalID: uuid.New(), Action: ActionFlag})
	if !errors.Is(err, models.ErrWithdrawalNotFound) {
		t.Fatalf("got %v, want ErrWithdrawalNotFound", err)
	}
}

func TestReviewRejectAfterCompletionIsInvalid(t *testing.T) {
	f := newFixture("10000")
	w, err := f.svc.Initiate(context.Background(), f.input("3000"))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	_, err = f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionReject, Reason: "too late",
	})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}

func TestApproveRejectRace(t *testing.T) {
	for i := 0; i < 20; i++ {
		f, w := reviewFixture(t, "60000")

		var wg sync.WaitGroup
		results := make([]error, 2)
		actions := []ReviewInput{
			{AdminID: f.admin, WithdrawalID: w.ID, Action: ActionApprove},
			{AdminID: uuid.New(), WithdrawalID: w.ID, Action: ActionReject, Reason: "suspicious"},
		}
		for idx, in := range actions {
			wg.Add(1)
			go func(idx int, in ReviewInput) {
				defer wg.Done()
				_, results[idx] = f.svc.Review(context.Background(), in)
			}(idx, in)
		}
		wg.Wait()

		if (results[0] == nil) == (results[1] == nil) {
			t.Fatalf("exactly one action must win: approve=%v reject=%v", results[0], results[1])
		}
		b := f.store.balance(f.user)
		final := f.store.row(w.ID)
		switch final.Status {
		case models.StatusProcessing:
			if !b.Pending.Equal(dec("60000")) || f.provider.calls() != 1 {
				t.Fatalf("approved but ledger %+v calls %d", b, f.provider.calls())
			}
		case models.StatusRejected:
			if !b.Pending.IsZero() || f.provider.calls() != 0 {
				t.Fatalf("rejected but ledger %+v calls %d", b, f.provider.calls())
			}
		default:
			t.Fatalf("unexpected final status %s", final.Status)
		}
	}
}

func TestHandleTransferEvent(t *testing.T) {
	tests := []struct {
		event         string
		wantStatus    models.WithdrawalStatus
		wantAvailable string
		wantWithdrawn string
	}{
		{paystack.EventTransferSuccess, models.StatusCompleted, "7000", "2975"},
		{paystack.EventTransferFailed, models.StatusFailed, "9975", "0"},
		{paystack.EventTransferReversed, models.StatusFailed, "9975", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			f := newFixture("10000")
			w, err := f.svc.Initiate(context.Background(), f.input("3000"))
			if err != nil {
				t.Fatalf("Initiate: %v", err)
			}
			ev := paystack.Event{Event: tt.event, Data: paystack.TransferResult{Reference: w.Reference}}

			got, err := f.svc.HandleTransferEvent(context.Background(), ev)
			if err != nil || got.Status != tt.wantStatus {
				t.Fatalf("event: %v status %s, want %s", err, got.Status, tt.wantStatus)
			}
			dup, err := f.svc.HandleTransferEvent(context.Background(), ev)
			if err != nil || dup.ID != uuid.Nil {
				t.Fatalf("duplicate event must be absorbed: %v %+v", err, dup)
			}

			b := f.store.balance(f.user)
			if !b.Available.Equal(dec(tt.wantAvailable)) || !b.Pending.IsZero() || !b.TotalWithdrawn.Equal(dec(tt.wantWithdrawn)) {
				t.Fatalf("ledger %+v", b)
			}
		})
	}
}

func TestTransferSuccessOnFlaggedWithdrawalIsSpent(t *testing.T) {
	f := newFixture("10000")
	f.provider.transfer = func(paystack.TransferRequest) (paystack.TransferResult, error) {
		return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferUnknown}
	}
	w, _ := f.svc.Initiate(context.Background(), f.input("3000"))
	f.provider.verify = func(string) (paystack.TransferResult, error) {
		return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferRejected, Message: "Transfer not found"}
	}
	flagged, err := f.svc.Reconcile(context.Background(), f.admin, w.ID)
	if err != nil || flagged.Status != models.StatusFlagged {
		t.Fatalf("reconcile: %v status %s", err, flagged.Status)
	}

	ev := paystack.Event{
		Event: paystack.EventTransferSuccess,
		Data:  paystack.TransferResult{Reference: w.Reference, TransferCode: "TRF_late"},
	}
	got, err := f.svc.HandleTransferEvent(context.Background(), ev)
	if err != nil || got.Status != models.StatusCompleted || got.TransferCode != "TRF_late" {
		t.Fatalf("late success: %v status %s", err, got.Status)
	}
	if _, ok := f.audit.last(w.ID, "withdrawal_reconciliation_required"); !ok {
		t.Fatalf("late success not escalated: %v", f.audit.actions(w.ID))
	}

	_, err = f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionReject, Reason: "no transfer found",
	})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("reject after payout: got %v, want ErrInvalidTransition", err)
	}
	b := f.store.balance(f.user)
	if !b.Available.Equal(dec("7000")) || !b.Pending.IsZero() || !b.TotalWithdrawn.Equal(dec("2975")) {
		t.Fatalf("paid withdrawal was refunded: %+v", b)
	}
}

func TestTransferSuccessOnRejectedWithdrawalIsEscalated(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	rejected, err := f.svc.Review(context.Background(), ReviewInput{
		AdminID: f.admin, WithdrawalID: w.ID, Action: ActionReject, Reason: "unverified label",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	before := f.store.balance(f.user)

	ev := paystack.Event{Event: paystack.EventTransferSuccess, Data: paystack.TransferResult{Reference: rejected.Reference}}
	got, err := f.svc.HandleTransferEvent(context.Background(), ev)
	if err != nil || got.Status != models.StatusRejected {
		t.Fatalf("event: %v status %s", err, got.Status)
	}
	if _, ok := f.audit.last(w.ID, "withdrawal_reconciliation_required"); !ok {
		t.Fatalf("success on rejected withdrawal not escalated: %v", f.audit.actions(w.ID))
	}
	if after := f.store.balance(f.user); !after.Available.Equal(before.Available) || !after.TotalWithdrawn.Equal(before.TotalWithdrawn) {
		t.Fatalf("ledger changed: %+v -> %+v", before, after)
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		verify     func(string) (paystack.TransferResult, error)
		wantStatus models.WithdrawalStatus
		wantErr    error
	}{
		{
			name: "paid",
			verify: func(ref string) (paystack.TransferResult, error) {
				return paystack.TransferResult{Status: paystack.TransferStatusSuccess, TransferCode: "TRF_x", Reference: ref}, nil
			},
			wantStatus: models.StatusCompleted,
		},
		{
			name: "failed",
			verify: func(ref string) (paystack.TransferResult, error) {
				return paystack.TransferResult{Status: paystack.TransferStatusFailed, Reference: ref}, nil
			},
			wantStatus: models.StatusFailed,
		},
		{
			name: "still pending",
			verify: func(ref string) (paystack.TransferResult, error) {
				return paystack.TransferResult{Status: paystack.TransferStatusPending, TransferCode: "TRF_y", Reference: ref}, nil
			},
			wantStatus: models.StatusProcessing,
		},
		{
			name: "never reached provider",
			verify: func(string) (paystack.TransferResult, error) {
				return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferRejected, Message: "Transfer not found"}
			},
			wantStatus: models.StatusFlagged,
		},
		{
			name: "provider still unreachable",
			verify: func(string) (paystack.TransferResult, error) {
				return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferUnknown}
			},
			wantStatus: models.StatusTransferUnknown,
			wantErr:    models.ErrTransferUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("10000")
			f.provider.transfer = func(paystack.TransferRequest) (paystack.TransferResult, error) {
				return paystack.TransferResult{}, &models.TransferError{Kind: models.TransferUnknown}
			}
			w, _ := f.svc.Initiate(context.Background(), f.input("3000"))
			f.provider.verify = tt.verify

			got, err := f.svc.Reconcile(context.Background(), f.admin, w.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if got.Status != tt.wantStatus {
				t.Fatalf("status %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestReconcileRequiresInFlightStatus(t *testing.T) {
	f, w := reviewFixture(t, "60000")
	_, err := f.svc.Reconcile(context.Background(), f.admin, w.ID)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}

func TestProcessDue(t *testing.T) {
	f, w := reviewFixture(t, "20000")

	n, err := f.svc.ProcessDue(context.Background(), f.now.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("early run: %d %v", n, err)
	}
	n, err = f.svc.ProcessDue(context.Background(), f.now.Add(12*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("due run: %d %v", n, err)
	}
	got := f.store.row(w.ID)
	if got.Status != models.StatusProcessing || got.Reference != w.Reference {
		t.Fatalf("status %s ref %s", got.Status, got.Reference)
	}
	n, _ = f.svc.ProcessDue(context.Background(), f.now.Add(24*time.Hour))
	if n != 0 || f.provider.calls() != 1 {
		t.Fatalf("request dispatched twice: claimed %d calls %d", n, f.provider.calls())
	}
}
