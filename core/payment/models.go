package payment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
)

// Payment statuses, as reported by the gateway.
const (
	StatusPending   = "pending"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Registration statuses
const (
	RegistrationPending = "pending"
	RegistrationPaid    = "paid"
)

type Registration struct {
	ID           string      `json:"id"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	Program      string      `json:"program"`
	AmountMinor  int64       `json:"amount_minor"`
	Currency     string      `json:"currency"`
	ReferralCode null.String `json:"referral_code"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

type Payment struct {
	ID              string    `json:"id"`
	RegistrationID  string    `json:"registration_id"`
	Reference       string    `json:"reference"`
	AmountMinor     int64     `json:"amount_minor"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	GatewayResponse null.JSON `json:"gateway_response"`
	PaidAt          null.Time `json:"paid_at"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewRegistration is submitted by the public registration form. Amount is in major units.
type NewRegistration struct {
	FullName     string  `json:"full_name" validate:"notblank,max=200"`
	Email        string  `json:"email" validate:"required,email,max=254"`
	Phone        string  `json:"phone" validate:"max=50"`
	Program      string  `json:"program" validate:"notblank,max=200"`
	Amount       float64 `json:"amount" validate:"gt=0,lte=1000000000"`
	Currency     string  `json:"currency" validate:"omitempty,len=3,alpha"`
	ReferralCode string  `json:"referral_code" validate:"max=50"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.FullName = core.CleanString(nr.FullName)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.Phone = core.CleanString(nr.Phone)
	nr.Program = core.CleanString(nr.Program)
	nr.Currency = strings.ToUpper(core.CleanString(nr.Currency))
	nr.ReferralCode = core.CleanString(nr.ReferralCode, true /* lower */)
	return validate.Struct(nr)
}

// InitResult is returned to the site, which redirects the payer to AuthorizationURL.
type InitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type RegistrationFilter struct {
	Search  string `query:"search"`
	Status  string `query:"status"`
	Program string `query:"program"`
}

func (rf *RegistrationFilter) Clean() {
	rf.Search = core.CleanString(rf.Search)
	rf.Status = core.CleanString(rf.Status, true /* lower */)
	rf.Program = core.CleanString(rf.Program)
}

type PaymentFilter struct {
	Status         string `query:"status"`
	RegistrationID string `query:"registration_id"`
}

func (pf *PaymentFilter) Clean() {
	pf.Status = core.CleanString(pf.Status, true /* lower */)
	pf.RegistrationID = core.CleanString(pf.RegistrationID)
}
