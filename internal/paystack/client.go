// Package paystack is a thin client for the Paystack transfers API.
package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.paystack.co"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	http   *resty.Client
	secret string
}

// NewClient builds the process-wide client. timeout bounds every request.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(secret).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, secret: secret}
}

// ToMinor converts a major-unit amount to the provider's minor unit (kobo, cents).
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// do performs the request and decodes the Paystack envelope. Any failure to get
// a definitive answer is reported as TransferUnknown.
func (c *Client) do(ctx context.Context, method, path string, body any) (envelope, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		if isTimeout(ctx, err) {
			return envelope{}, &models.TransferError{Kind: models.TransferUnknown, Message: "provider timeout"}
		}
		return envelope{}, &models.TransferError{Kind: models.TransferUnknown, Message: err.Error()}
	}

	var env envelope
	if uerr := json.Unmarshal(resp.Body(), &env); uerr != nil {
		if resp.StatusCode() >= http.StatusInternalServerError {
			return envelope{}, &models.TransferError{Kind: models.TransferUnknown, Message: fmt.Sprintf("provider status %d", resp.StatusCode())}
		}
		return envelope{}, &models.TransferError{Kind: models.TransferUnknown, Message: fmt.Sprintf("unreadable provider response: %v", uerr)}
	}

	logger.Log.Debug("paystack response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Bool("ok", env.Status))

	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return env, &models.TransferError{Kind: models.TransferUnknown, Message: env.Message}
	case resp.IsError() || !env.Status:
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("provider status %d", resp.StatusCode())
		}
		return env, &models.TransferError{Kind: models.TransferRejected, Message: msg}
	}
	return env, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
