package main

import (
	"errors"
	"testing"
	"time"
)

func TestNetAddressSet(t *testing.T) {
	tests := []struct {
		value string
		want  string
		err   error
	}{
		{"localhost:8080", "localhost:8080", nil},
		{"http://127.0.0.1:9000", "127.0.0.1:9000", nil},
		{"localhost", "", ErrNotFullIP},
		{":8080", "", ErrInvalidIP},
		{"localhost:http", "", ErrInvalidPort},
		{"localhost:70000", "", ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			var n netAddress
			err := n.Set(tt.value)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if err == nil && n.String() != tt.want {
				t.Fatalf("got %s, want %s", n.String(), tt.want)
			}
		})
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("SECRET", "jwt-secret")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_x")

	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.TransferTimeout != 15*time.Second || opts.PayoutLockPeriod != 24*time.Hour {
		t.Fatalf("timeouts %s %s", opts.TransferTimeout, opts.PayoutLockPeriod)
	}
	if opts.Currency != "NGN" || opts.RefundFees || opts.TrustProxy || opts.SchedulerInterval != time.Minute {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	if opts.APIAddress.String() != "localhost:8080" {
		t.Fatalf("address %s", opts.APIAddress.String())
	}
}

func TestParseFlagsEnvOverridesFlags(t *testing.T) {
	t.Setenv("SECRET", "jwt-secret")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_x")
	t.Setenv("RUN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("TRANSFER_TIMEOUT", "5s")
	t.Setenv("REFUND_FEES", "true")
	t.Setenv("PAYOUT_CURRENCY", "GHS")
	t.Setenv("TRUST_PROXY", "true")

	opts, err := parseFlags([]string{"-a", "localhost:1234", "-t", "30s", "-c", "KES", "-i", "10s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.APIAddress.String() != "0.0.0.0:9090" {
		t.Fatalf("address %s", opts.APIAddress.String())
	}
	if opts.TransferTimeout != 5*time.Second || !opts.RefundFees || !opts.TrustProxy || opts.Currency != "GHS" {
		t.Fatalf("env not applied: %+v", opts)
	}
	if opts.SchedulerInterval != 10*time.Second {
		t.Fatalf("flag not applied: %s", opts.SchedulerInterval)
	}
}

func TestParseFlagsRequiresSecrets(t *testing.T) {
	t.Setenv("SECRET", "")
	t.Setenv("PAYSTACK_SECRET_KEY", "")

	_, err := parseFlags([]string{"-k", "jwt"})
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("got %v, want ErrMissingSecret", err)
	}
}

func TestParseFlagsBadDuration(t *testing.T) {
	t.Setenv("SECRET", "jwt-secret")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_x")
	t.Setenv("PAYOUT_LOCK_PERIOD", "a day")

	if _, err := parseFlags(nil); err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
}
