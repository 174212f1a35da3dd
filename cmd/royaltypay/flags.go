package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	version  = "0.1.0"
	progName = "royaltypay"
	source   = "https://github.com/Fuonder/royaltypay"
)

var (
	ErrNotFullIP     = errors.New("given ip address and port incorrect")
	ErrInvalidIP     = errors.New("incorrect ip address")
	ErrInvalidPort   = errors.New("incorrect port number")
	ErrMissingSecret = errors.New("secret is not configured")
)

type netAddress struct {
	ipaddr string
	port   int
}

func (n *netAddress) String() string {
	return fmt.Sprintf("%s:%d", n.ipaddr, n.port)
}
func (n *netAddress) Set(value string) error {
	value = strings.TrimPrefix(value, "http://")
	values := strings.Split(value, ":")
	if len(values) != 2 {
		return fmt.Errorf("%w: \"%s\"", ErrNotFullIP, value)
	}
	n.ipaddr = values[0]
	if n.ipaddr == "" {
		return fmt.Errorf("%w: \"%s\"", ErrInvalidIP, values[0])
	}
	var err error
	n.port, err = strconv.Atoi(values[1])
	if err != nil || n.port <= 0 || n.port > 65535 {
		return fmt.Errorf("%w: \"%s\"", ErrInvalidPort, values[1])
	}
	return nil
}

type Flags struct {
	APIAddress        netAddress
	DatabaseDSN       string
	LogLevel          string
	Key               string
	PaystackBaseURL   string
	PaystackSecret    string
	TransferTimeout   time.Duration
	Currency          string
	PayoutLockPeriod  time.Duration
	RefundFees        bool
	TrustProxy        bool
	SchedulerInterval time.Duration
	NotifyWebhookURL  string
}

func (f *Flags) String() string {
	return fmt.Sprintf("APIAddress: %s, "+
		"LogLevel: %s, "+
		"PaystackBaseURL: %s, "+
		"TransferTimeout: %s, "+
		"Currency: %s, "+
		"PayoutLockPeriod: %s, "+
		"RefundFees: %t, "+
		"TrustProxy: %t, "+
		"SchedulerInterval: %s, "+
		"NotifyWebhook: %t",
		f.APIAddress.String(),
		f.LogLevel,
		f.PaystackBaseURL,
		f.TransferTimeout,
		f.Currency,
		f.PayoutLockPeriod,
		f.RefundFees,
		f.TrustProxy,
		f.SchedulerInterval,
		f.NotifyWebhookURL != "",
	)
}

func defaultFlags() Flags {
	return Flags{
		APIAddress: netAddress{
			ipaddr: "localhost",
			port:   8080,
		},
		LogLevel:          "info",
		TransferTimeout:   15 * time.Second,
		Currency:          "NGN",
		PayoutLockPeriod:  24 * time.Hour,
		SchedulerInterval: time.Minute,
	}
}

func parseFlags(args []string) (Flags, error) {
	opts := defaultFlags()
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\nSource code:\t%s\nVersion:\t%s\nUsage of %s:\n",
			progName,
			source,
			version,
			progName)
		fs.PrintDefaults()
	}
	fs.Var(&opts.APIAddress, "a", "ip and port of server in format <ip>:<port>")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&opts.LogLevel, "l", opts.LogLevel, "loglevel")
	fs.StringVar(&opts.Key, "k", "", "JWT signing key")
	fs.StringVar(&opts.PaystackBaseURL, "p", "", "Paystack API base URL")
	fs.StringVar(&opts.PaystackSecret, "s", "", "Paystack secret key")
	fs.DurationVar(&opts.TransferTimeout, "t", opts.TransferTimeout, "transfer provider timeout")
	fs.StringVar(&opts.Currency, "c", opts.Currency, "payout currency")
	fs.DurationVar(&opts.PayoutLockPeriod, "L", opts.PayoutLockPeriod, "payout lock after security changes")
	fs.BoolVar(&opts.RefundFees, "f", false, "refund the fee on rejected or failed withdrawals")
	fs.BoolVar(&opts.TrustProxy, "x", false, "take client ip from X-Forwarded-For / X-Real-IP (behind a reverse proxy only)")
	fs.DurationVar(&opts.SchedulerInterval, "i", opts.SchedulerInterval, "delayed dispatch interval")
	fs.StringVar(&opts.NotifyWebhookURL, "w", "", "notification webhook url")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		if err := opts.APIAddress.Set(envRunAddr); err != nil {
			return Flags{}, err
		}
	}
	if envDatabaseDSN := os.Getenv("DATABASE_URI"); envDatabaseDSN != "" {
		opts.DatabaseDSN = envDatabaseDSN
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		opts.LogLevel = envLogLevel
	}
	if envSecret := os.Getenv("SECRET"); envSecret != "" {
		opts.Key = envSecret
	}
	if envBaseURL := os.Getenv("PAYSTACK_BASE_URL"); envBaseURL != "" {
		opts.PaystackBaseURL = envBaseURL
	}
	if envPaystackSecret := os.Getenv("PAYSTACK_SECRET_KEY"); envPaystackSecret != "" {
		opts.PaystackSecret = envPaystackSecret
	}
	if envCurrency := os.Getenv("PAYOUT_CURRENCY"); envCurrency != "" {
		opts.Currency = envCurrency
	}
	if envWebhook := os.Getenv("NOTIFY_WEBHOOK_URL"); envWebhook != "" {
		opts.NotifyWebhookURL = envWebhook
	}
	durations := map[string]*time.Duration{
		"TRANSFER_TIMEOUT":   &opts.TransferTimeout,
		"PAYOUT_LOCK_PERIOD": &opts.PayoutLockPeriod,
		"SCHEDULER_INTERVAL": &opts.SchedulerInterval,
	}
	for name, target := range durations {
		if env := os.Getenv(name); env != "" {
			d, err := time.ParseDuration(env)
			if err != nil {
				return Flags{}, fmt.Errorf("%s: %w", name, err)
			}
			*target = d
		}
	}
	switches := map[string]*bool{
		"REFUND_FEES": &opts.RefundFees,
		"TRUST_PROXY": &opts.TrustProxy,
	}
	for name, target := range switches {
		if env := os.Getenv(name); env != "" {
			v, err := strconv.ParseBool(env)
			if err != nil {
				return Flags{}, fmt.Errorf("%s: %w", name, err)
			}
			*target = v
		}
	}

	if opts.Key == "" {
		return Flags{}, fmt.Errorf("%w: -k / SECRET", ErrMissingSecret)
	}
	if opts.PaystackSecret == "" {
		return Flags{}, fmt.Errorf("%w: -s / PAYSTACK_SECRET_KEY", ErrMissingSecret)
	}
	if opts.TransferTimeout <= 0 || opts.SchedulerInterval <= 0 {
		return Flags{}, errors.New("timeouts and intervals must be positive")
	}
	return opts, nil
}
