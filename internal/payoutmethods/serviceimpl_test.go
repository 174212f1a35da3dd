package payoutmethods

import (
	"context"
	"errors"
	"testing"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/google/uuid"
)

type memMethods struct {
	methods []models.PayoutMethod
}

func (m *memMethods) InsertPayoutMethod(_ context.Context, pm models.PayoutMethod) error {
	m.methods = append(m.methods, pm)
	return nil
}

func (m *memMethods) GetPayoutMethod(_ context.Context, UID, id uuid.UUID) (models.PayoutMethod, error) {
	for _, pm := range m.methods {
		if pm.ID == id && pm.UserID == UID {
			return pm, nil
		}
	}
	return models.PayoutMethod{}, models.ErrPayoutMethodNotFound
}

func (m *memMethods) GetUserPayoutMethods(_ context.Context, UID uuid.UUID) ([]models.PayoutMethod, error) {
	var out []models.PayoutMethod
	for _, pm := range m.methods {
		if pm.UserID == UID {
			out = append(out, pm)
		}
	}
	if len(out) == 0 {
		return nil, models.ErrNoData
	}
	return out, nil
}

type stubRecipients struct {
	got paystack.RecipientRequest
	err error
}

func (s *stubRecipients) CreateRecipient(_ context.Context, rr paystack.RecipientRequest) (paystack.Recipient, error) {
	s.got = rr
	if s.err != nil {
		return paystack.Recipient{}, s.err
	}
	return paystack.Recipient{RecipientCode: "RCP_test", Active: true}, nil
}

type stubLocker struct {
	locked []uuid.UUID
	err    error
}

func (s *stubLocker) LockPayouts(_ context.Context, UID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.locked = append(s.locked, UID)
	return nil
}

func TestCreatePayoutMethod(t *testing.T) {
	repo := &memMethods{}
	rec := &stubRecipients{}
	lock := &stubLocker{}
	s := NewPMService(repo, rec, lock, "NGN")
	uid := uuid.New()

	m, err := s.Create(context.Background(), uid, CreateInput{BankCode: "058", AccountNumber: "0123456789", AccountName: "Ada Obi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Kind != models.PayoutKindBank || m.RecipientCode != "RCP_test" || m.AccountNumberMasked != "******6789" {
		t.Fatalf("unexpected payout method %+v", m)
	}
	if rec.got.Type != "nuban" || rec.got.Currency != "NGN" {
		t.Fatalf("unexpected recipient request %+v", rec.got)
	}
	if len(lock.locked) != 1 || lock.locked[0] != uid {
		t.Fatalf("adding a payout method must lock payouts, got %v", lock.locked)
	}

	got, err := s.Get(context.Background(), uid, m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("get own method: %+v %v", got, err)
	}
	if _, err := s.Get(context.Background(), uuid.New(), m.ID); !errors.Is(err, models.ErrPayoutMethodNotFound) {
		t.Fatalf("other user's method must be hidden, got %v", err)
	}
}

func TestCreatePayoutMethodValidation(t *testing.T) {
	s := NewPMService(&memMethods{}, &stubRecipients{}, &stubLocker{}, "NGN")
	bad := []CreateInput{
		{Kind: "crypto", BankCode: "058", AccountNumber: "0123456789", AccountName: "A"},
		{BankCode: "", AccountNumber: "0123456789", AccountName: "A"},
		{BankCode: "058", AccountNumber: "12ab5678", AccountName: "A"},
		{BankCode: "058", AccountNumber: "0123456789", AccountName: " "},
	}
	for _, in := range bad {
		if _, err := s.Create(context.Background(), uuid.New(), in); !errors.Is(err, models.ErrInvalidPayoutMethod) {
			t.Fatalf("input %+v: expected ErrInvalidPayoutMethod, got %v", in, err)
		}
	}
}

func TestCreatePayoutMethodProviderFailure(t *testing.T) {
	lock := &stubLocker{}
	repo := &memMethods{}
	s := NewPMService(repo, &stubRecipients{err: &models.TransferError{Kind: models.TransferRejected, Message: "Cannot resolve account"}}, lock, "NGN")
	_, err := s.Create(context.Background(), uuid.New(), CreateInput{BankCode: "058", AccountNumber: "0123456789", AccountName: "Ada"})
	if !errors.Is(err, models.ErrInvalidPayoutMethod) {
		t.Fatalf("expected ErrInvalidPayoutMethod, got %v", err)
	}
	if len(repo.methods) != 0 || len(lock.locked) != 0 {
		t.Fatalf("nothing must be stored when the provider refuses the recipient")
	}
}

func TestCreatePayoutMethodLockFailure(t *testing.T) {
	repo := &memMethods{}
	dbDown := errors.New("db down")
	s := NewPMService(repo, &stubRecipients{}, &stubLocker{err: dbDown}, "NGN")
	uid := uuid.New()

	_, err := s.Create(context.Background(), uid, CreateInput{BankCode: "058", AccountNumber: "0123456789", AccountName: "Ada Obi"})
	if !errors.Is(err, dbDown) {
		t.Fatalf("got %v, want lock error", err)
	}
	if len(repo.methods) != 0 {
		t.Fatalf("destination stored without a cool-down: %+v", repo.methods)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("0123456789"); got != "******6789" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Mask("123"); got != "123" {
		t.Fatalf("unexpected mask %q", got)
	}
}
