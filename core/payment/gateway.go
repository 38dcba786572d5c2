package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

type InitRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

type InitResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Transaction is the gateway's view of a payment.
type Transaction struct {
	Reference   string
	Status      string
	AmountMinor int64
	Currency    string
	PaidAt      time.Time
	Raw         json.RawMessage
}

// Gateway is a hosted payment gateway.
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (InitResponse, error)
	Verify(ctx context.Context, reference string) (Transaction, error)
}

// VerifySignature checks a webhook signature: the hex encoded HMAC-SHA512 of body keyed with secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the signature VerifySignature expects for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
