// Package paystack is a payment.Gateway for Paystack compatible APIs.
package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/payment"
)

const defaultTimeout = 20 * time.Second

type Client struct {
	baseURL   string
	secretKey string
	http      *rest.Client
}

var _ payment.Gateway = (*Client)(nil)

func New(conf *core.Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(conf.Payment.BaseURL, "/"),
		secretKey: conf.Payment.SecretKey,
		http:      &rest.Client{HTTPClient: &http.Client{Timeout: defaultTimeout}},
	}
}

// envelope wraps every API response.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, body interface{}, data interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.secretKey,
			"Accept":        "application/json",
		},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "paystack %s %s", method, path)
	}

	var env envelope
	if err = json.Unmarshal([]byte(res.Body), &env); err != nil {
		return errors.Wrapf(err, "paystack %s %s: status %d: decoding response", method, path, res.StatusCode)
	}
	if res.StatusCode >= http.StatusBadRequest || !env.Status {
		return errors.Errorf("paystack %s %s: status %d: %s", method, path, res.StatusCode, env.Message)
	}
	if data == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, data), "decoding response data")
}

type initializeBody struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (c *Client) Initialize(ctx context.Context, ir payment.InitRequest) (payment.InitResponse, error) {
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	body := initializeBody{
		Email:       ir.Email,
		Amount:      ir.AmountMinor,
		Currency:    ir.Currency,
		Reference:   ir.Reference,
		CallbackURL: ir.CallbackURL,
		Metadata:    ir.Metadata,
	}
	if err := c.do(ctx, rest.Post, "/transaction/initialize", body, &data); err != nil {
		return payment.InitResponse{}, err
	}
	return payment.InitResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (payment.Transaction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, rest.Get, "/transaction/verify/"+url.PathEscape(reference), nil, &raw); err != nil {
		return payment.Transaction{}, err
	}

	var data struct {
		Reference string    `json:"reference"`
		Status    string    `json:"status"`
		Amount    int64     `json:"amount"`
		Currency  string    `json:"currency"`
		PaidAt    time.Time `json:"paid_at"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return payment.Transaction{}, errors.Wrap(err, "decoding transaction")
	}
	return payment.Transaction{
		Reference:   data.Reference,
		Status:      data.Status,
		AmountMinor: data.Amount,
		Currency:    data.Currency,
		PaidAt:      data.PaidAt.UTC(),
		Raw:         raw,
	}, nil
}
