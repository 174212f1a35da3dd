package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Fuonder/royaltypay.git/internal/models"
)

type RecipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

type Recipient struct {
	RecipientCode string `json:"recipient_code"`
	Active        bool   `json:"active"`
}

// RecipientType maps a payout method kind to Paystack's recipient type.
func RecipientType(kind string) string {
	if kind == models.PayoutKindMobileMoney {
		return "mobile_money"
	}
	return "nuban"
}

func (c *Client) CreateRecipient(ctx context.Context, rr RecipientRequest) (Recipient, error) {
	env, err := c.do(ctx, http.MethodPost, "/transferrecipient", rr)
	if err != nil {
		return Recipient{}, err
	}
	var rec Recipient
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return Recipient{}, fmt.Errorf("decode recipient: %w", err)
	}
	if rec.RecipientCode == "" {
		return Recipient{}, fmt.Errorf("%w: provider returned no recipient code", models.ErrInvalidPayoutMethod)
	}
	return rec, nil
}
