package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/models"
)

const SignatureHeader = "X-Paystack-Signature"

const (
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

type Event struct {
	Event string         `json:"event"`
	Data  TransferResult `json:"data"`
}

// VerifySignature checks the HMAC-SHA512 of the raw body against the header value.
func (c *Client) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(c.secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(expected, got) {
		return models.ErrInvalidSignature
	}
	return nil
}

func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode webhook event: %w", err)
	}
	return ev, nil
}
