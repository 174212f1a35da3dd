package dbservices

import (
	"errors"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/audit"
	"github.com/Fuonder/royaltypay.git/internal/auth"
	"github.com/Fuonder/royaltypay.git/internal/notifications"
	"github.com/Fuonder/royaltypay.git/internal/payoutmethods"
	"github.com/Fuonder/royaltypay.git/internal/paystack"
	"github.com/Fuonder/royaltypay.git/internal/pins"
	"github.com/Fuonder/royaltypay.git/internal/users"
	"github.com/Fuonder/royaltypay.git/internal/wallets"
	"github.com/Fuonder/royaltypay.git/internal/withdrawals"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	notifyWorkers   = 4
	notifyQueueSize = 256
)

type Options struct {
	Secret           []byte
	PayoutLockPeriod time.Duration
	NotifyWebhookURL string
	Withdrawals      withdrawals.Options
}

type DatabaseServices struct {
	UserSrv       users.UserService
	WalletSrv     wallets.WalletService
	AuthSrv       auth.AuthService
	PinSrv        pins.PinService
	PayoutSrv     payoutmethods.PayoutMethodService
	WithdrawalSrv withdrawals.WithdrawalService
	AuditRepo     audit.DatabaseAudit
	Notifier      *notifications.Dispatcher
}

func NewDatabaseServices(pool *pgxpool.Pool, provider *paystack.Client, opts Options) (*DatabaseServices, error) {
	if pool == nil {
		return nil, errors.New("database pool is not initialized")
	}
	if provider == nil {
		return nil, errors.New("transfer provider is not initialized")
	}
	s := &DatabaseServices{}

	// user -> wallet -> auth -> pin -> payout method -> withdrawal

	DBUsers := users.NewDBUsers(pool)
	s.UserSrv = users.NewUService(DBUsers)

	DBWallets := wallets.NewDBWallets(pool)
	s.WalletSrv = wallets.NewWService(DBWallets)

	DBAuth := auth.NewDBAuth(pool)
	s.AuthSrv = auth.NewAService(DBUsers, DBWallets, DBAuth, opts.Secret)

	pinSrv := pins.NewPService(pins.NewDBPins(pool), opts.PayoutLockPeriod)
	s.PinSrv = pinSrv

	payoutSrv := payoutmethods.NewPMService(payoutmethods.NewDBPayoutMethods(pool), provider, pinSrv, opts.Withdrawals.Currency)
	s.PayoutSrv = payoutSrv

	s.AuditRepo = audit.NewDBAudit(pool)
	s.Notifier = notifications.NewDispatcher(notifications.NewDBNotifications(pool), opts.NotifyWebhookURL, notifyWorkers, notifyQueueSize)

	s.WithdrawalSrv = withdrawals.NewWDService(withdrawals.NewDBWithdrawals(pool),
		pinSrv,
		payoutSrv,
		provider,
		s.Notifier,
		s.AuditRepo,
		opts.Withdrawals)

	return s, nil
}
