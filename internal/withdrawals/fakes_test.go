package withdrawals

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore mirrors DBWithdrawals, including the wallet buckets it moves.
type memStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]models.WithdrawalRequest
	balances map[uuid.UUID]*models.WalletBalance
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[uuid.UUID]models.WithdrawalRequest),
		balances: make(map[uuid.UUID]*models.WalletBalance),
	}
}

func (m *memStore) fund(UID uuid.UUID, available string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[UID] = &models.WalletBalance{
		UserID:         UID,
		Available:      decimal.RequireFromString(available),
		Pending:        decimal.Zero,
		TotalEarnings:  decimal.RequireFromString(available),
		TotalWithdrawn: decimal.Zero,
	}
}

func (m *memStore) balance(UID uuid.UUID) models.WalletBalance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.balances[UID]
}

func (m *memStore) row(id uuid.UUID) models.WithdrawalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memStore) put(w models.WithdrawalRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[w.ID] = w
}

func (m *memStore) Create(_ context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[w.UserID]
	if !ok || b.Available.LessThan(w.Amount) {
		return models.WithdrawalRequest{}, models.ErrInsufficientBalance
	}
	b.Available = b.Available.Sub(w.Amount)
	b.Pending = b.Pending.Add(w.Amount)
	m.rows[w.ID] = w
	return w, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.rows[id]
	if !ok {
		return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
	}
	return w, nil
}

func (m *memStore) GetByReference(_ context.Context, reference string) (models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.rows {
		if w.Reference == reference {
			return w, nil
		}
	}
	return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
}

func (m *memStore) LatestProcessing(_ context.Context, UID uuid.UUID) (*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.WithdrawalRequest
	for _, w := range m.rows {
		if w.UserID != UID || w.Status != models.StatusProcessing {
			continue
		}
		if latest == nil || w.CreatedAt.After(latest.CreatedAt) {
			c := w
			latest = &c
		}
	}
	return latest, nil
}

func (m *memStore) ListByUser(_ context.Context, UID uuid.UUID) ([]models.WithdrawalRequest, error) {
	return m.filter(func(w models.WithdrawalRequest) bool { return w.UserID == UID }), nil
}

func (m *memStore) ListByStatus(_ context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	return m.filter(func(w models.WithdrawalRequest) bool { return w.Status == status }), nil
}

func (m *memStore) filter(keep func(models.WithdrawalRequest) bool) []models.WithdrawalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.WithdrawalRequest, 0)
	for _, w := range m.rows {
		if keep(w) {
			list = append(list, w)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func (m *memStore) Transition(_ context.Context, t Transition) (models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return models.WithdrawalRequest{}, err
	}
	var (
		w  models.WithdrawalRequest
		ok bool
	)
	if t.ID != uuid.Nil {
		w, ok = m.rows[t.ID]
	} else {
		for _, r := range m.rows {
			if r.Reference == t.Reference {
				w, ok = r, true
				break
			}
		}
	}
	if !ok {
		return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
	}
	if !t.Allows(w.Status) {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: status is %s", models.ErrInvalidTransition, w.Status)
	}
	t.Apply(&w, time.Now())

	b := m.balances[w.UserID]
	switch t.Ledger {
	case wallets.OutcomeSpent:
		if b.Pending.LessThan(w.Amount) {
			return models.WithdrawalRequest{}, wallets.ErrLedgerMismatch
		}
		b.Pending = b.Pending.Sub(w.Amount)
		b.TotalWithdrawn = b.TotalWithdrawn.Add(t.Credited(w))
	case wallets.OutcomeRefunded:
		if b.Pending.LessThan(w.Amount) {
			return models.WithdrawalRequest{}, wallets.ErrLedgerMismatch
		}
		b.Pending = b.Pending.Sub(w.Amount)
		b.Available = b.Available.Add(t.Credited(w))
	}
	m.rows[w.ID] = w
	return w, nil
}

func (m *memStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claimed := make([]models.WithdrawalRequest, 0)
	for id, w := range m.rows {
		if len(claimed) == limit {
			break
		}
		if w.Status != models.StatusPendingDelay || w.ScheduledFor == nil || w.ScheduledFor.After(now) {
			continue
		}
		w.Status = models.StatusDispatching
		m.rows[id] = w
		claimed = append(claimed, w)
	}
	return claimed, nil
}

type stubPins struct {
	err error
}

func (s stubPins) Verify(_ context.Context, _ uuid.UUID, _ string) error {
	return s.err
}

type stubMethods struct {
	methods map[uuid.UUID]models.PayoutMethod
}

func (s *stubMethods) Get(_ context.Context, UID, id uuid.UUID) (models.PayoutMethod, error) {
	pm, ok := s.methods[id]
	if !ok || pm.UserID != UID {
		return models.PayoutMethod{}, models.ErrPayoutMethodNotFound
	}
	return pm, nil
}

type stubProvider struct {
	mu        sync.Mutex
	initiated []paystack.TransferRequest
	transfer  func(tr paystack.TransferRequest) (paystack.TransferResult, error)
	verify    func(reference string) (paystack.TransferResult, error)
}

func (p *stubProvider) InitiateTransfer(_ context.Context, tr paystack.TransferRequest) (paystack.TransferResult, error) {
	p.mu.Lock()
	p.initiated = append(p.initiated, tr)
	p.mu.Unlock()
	if p.transfer == nil {
		return paystack.TransferResult{Status: paystack.TransferStatusPending, TransferCode: "TRF_" + tr.Reference, Reference: tr.Reference}, nil
	}
	return p.transfer(tr)
}

func (p *stubProvider) VerifyTransfer(_ context.Context, reference string) (paystack.TransferResult, error) {
	if p.verify == nil {
		return paystack.TransferResult{Status: paystack.TransferStatusPending, Reference: reference}, nil
	}
	return p.verify(reference)
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.initiated)
}

type note struct {
	UID   uuid.UUID
	Title string
}

type stubNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *stubNotifier) Notify(UID uuid.UUID, title, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{UID: UID, Title: title})
}

func (n *stubNotifier) titles(UID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var list []string
	for _, nt := range n.notes {
		if nt.UID == UID {
			list = append(list, nt.Title)
		}
	}
	return list
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
}

func (a *memAudit) Record(_ context.Context, entry models.AuditLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) last(target uuid.UUID, action string) (models.AuditLogEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.entries) - 1; i >= 0; i-- {
		if e := a.entries[i]; e.TargetID == target.String() && e.Action == action {
			return e, true
		}
	}
	return models.AuditLogEntry{}, false
}

func (a *memAudit) actions(target uuid.UUID) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var list []string
	for _, e := range a.entries {
		if e.TargetID == target.String() {
			list = append(list, e.Action)
		}
	}
	return list
}

type fixture struct {
	svc      *WDService
	store    *memStore
	provider *stubProvider
	notifier *stubNotifier
	audit    *memAudit
	user     uuid.UUID
	admin    uuid.UUID
	method   models.PayoutMethod
	now      time.Time
}

func newFixture(available string) *fixture {
	f := &fixture{
		store:    newMemStore(),
		provider: &stubProvider{},
		notifier: &stubNotifier{},
		audit:    &memAudit{},
		user:     uuid.New(),
		admin:    uuid.New(),
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.method = models.PayoutMethod{
		ID:            uuid.New(),
		UserID:        f.user,
		Kind:          models.PayoutKindBank,
		BankCode:      "058",
		RecipientCode: "RCP_test",
	}
	f.store.fund(f.user, available)
	methods := &stubMethods{methods: map[uuid.UUID]models.PayoutMethod{f.method.ID: f.method}}
	f.svc = NewWDService(f.store, stubPins{}, methods, f.provider, f.notifier, f.audit, Options{Currency: "NGN"})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) input(amount string) InitiateInput {
	return InitiateInput{
		UserID:         f.user,
		Amount:         decimal.RequireFromString(amount),
		PayoutMethodID: f.method.ID,
		Pin:            "1234",
		IPAddress:      "10.0.0.1",
		UserAgent:      "royalty-app/1.0",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
