package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserCreationFailed = errors.New("user creation failed")
	ErrWrongCredentials   = errors.New("wrong credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")

	ErrPinNotConfigured = errors.New("transaction pin not configured")
	ErrInvalidPin       = errors.New("invalid transaction pin")
	ErrInvalidPinFormat = errors.New("transaction pin must be 4 to 6 digits")
	ErrPayoutLocked     = errors.New("payouts are locked")

	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrPayoutMethodNotFound = errors.New("payout method not found")
	ErrInvalidPayoutMethod  = errors.New("invalid payout method")

	ErrTransferRejected = errors.New("transfer rejected")
	ErrTransferUnknown  = errors.New("transfer outcome unknown")

	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrInvalidTransition      = errors.New("withdrawal is not in a state that allows this action")
	ErrInvalidAction          = errors.New("invalid action")
	ErrMissingRejectionReason = errors.New("failure reason is required to reject a withdrawal")
	ErrMissingAdminNotes      = errors.New("admin notes are required")

	ErrInvalidSignature = errors.New("invalid signature")

	ErrNoData = errors.New("no data")
)

// PayoutLockedError carries the moment the payout cool-down ends.
type PayoutLockedError struct {
	Until time.Time
}

func (e *PayoutLockedError) Error() string {
	return fmt.Sprintf("%v until %s", ErrPayoutLocked, e.Until.UTC().Format(time.RFC3339))
}

func (e *PayoutLockedError) Unwrap() error {
	return ErrPayoutLocked
}

type TransferErrorKind int

const (
	TransferRejected TransferErrorKind = iota
	TransferUnknown
)

// TransferError is returned by the transfer provider client. Rejected means the
// provider refused the payout; Unknown means the outcome could not be determined
// (timeout, transport failure, 5xx) and the transfer may still go through.
type TransferError struct {
	Kind    TransferErrorKind
	Message string
}

func (e *TransferError) Error() string {
	if e.Message == "" {
		return e.Unwrap().Error()
	}
	return fmt.Sprintf("%v: %s", e.Unwrap(), e.Message)
}

func (e *TransferError) Unwrap() error {
	if e.Kind == TransferUnknown {
		return ErrTransferUnknown
	}
	return ErrTransferRejected
}
