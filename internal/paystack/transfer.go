package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Fuonder/royaltypay.git/internal/models"
)

const (
	TransferStatusSuccess  = "success"
	TransferStatusPending  = "pending"
	TransferStatusOTP      = "otp"
	TransferStatusFailed   = "failed"
	TransferStatusReversed = "reversed"
)

type TransferRequest struct {
	AmountMinor int64
	Recipient   string
	Reference   string
	Reason      string
	Currency    string
}

type transferBody struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

type TransferResult struct {
	Status       string          `json:"status"`
	TransferCode string          `json:"transfer_code"`
	Reference    string          `json:"reference"`
	Amount       int64           `json:"amount"`
	Reason       string          `json:"reason"`
	Raw          json.RawMessage `json:"-"`
}

func (r TransferResult) Failed() bool {
	return r.Status == TransferStatusFailed || r.Status == TransferStatusReversed
}

// InitiateTransfer asks the provider to pay AmountMinor to the recipient. The
// reference makes retries of the same payout idempotent on the provider side.
func (c *Client) InitiateTransfer(ctx context.Context, tr TransferRequest) (TransferResult, error) {
	body := transferBody{
		Source:    "balance",
		Amount:    tr.AmountMinor,
		Recipient: tr.Recipient,
		Reference: tr.Reference,
		Reason:    tr.Reason,
		Currency:  tr.Currency,
	}
	env, err := c.do(ctx, http.MethodPost, "/transfer", body)
	if err != nil {
		return TransferResult{}, err
	}
	res, err := decodeTransfer(env)
	if err != nil {
		return TransferResult{}, err
	}
	if res.Failed() {
		return res, &models.TransferError{Kind: models.TransferRejected, Message: firstNonEmpty(res.Reason, env.Message)}
	}
	return res, nil
}

func (c *Client) VerifyTransfer(ctx context.Context, reference string) (TransferResult, error) {
	env, err := c.do(ctx, http.MethodGet, "/transfer/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return TransferResult{}, err
	}
	return decodeTransfer(env)
}

func decodeTransfer(env envelope) (TransferResult, error) {
	var res TransferResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return TransferResult{}, &models.TransferError{Kind: models.TransferUnknown, Message: fmt.Sprintf("unreadable transfer data: %v", err)}
	}
	res.Raw = env.Data
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
