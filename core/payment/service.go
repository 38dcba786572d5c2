package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
)

const (
	referencePrefix = "AUR-"
	referenceLen    = 20

	ReceiptTemplate      = "payment_receipt"
	RegistrationTemplate = "registration_received"
)

var (
	// errors
	ErrNotFound             = errors.New("payment not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrAmountMismatch       = errors.New("paid amount does not match the payment amount")
	ErrAmountOutOfRange     = errors.New("amount out of range")
	// ErrAlreadyPaid is returned by Repository.UpdatePayment when the stored payment is already successful.
	ErrAlreadyPaid = errors.New("payment already successful")
)

type (
	Repository interface {
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		GetRegistration(ctx context.Context, id string) (Registration, error)
		UpdateRegistration(ctx context.Context, reg Registration) (Registration, error)
		QueryRegistrations(ctx context.Context, filter RegistrationFilter, ordering []core.DBOrdering) ([]Registration, error)

		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPaymentByReference(ctx context.Context, reference string) (Payment, error)
		// UpdatePayment never overwrites a successful payment: it returns ErrAlreadyPaid instead.
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		QueryPayments(ctx context.Context, filter PaymentFilter, ordering []core.DBOrdering) ([]Payment, error)
	}

	// ReferralTracker is implemented by referral.Service.
	ReferralTracker interface {
		IsActive(ctx context.Context, code string) (bool, error)
		RecordConversion(ctx context.Context, code string) error
	}

	// Notifier is implemented by mailer.Service.
	Notifier interface {
		SendTemplate(ctx context.Context, key string, to []mail.Address, data interface{}) error
	}

	Service struct {
		repo        Repository
		gateway     Gateway
		referrals   ReferralTracker
		notifier    Notifier
		logger      core.Logger
		secret      string
		currency    string
		callbackURL string
		nowFunc     func() time.Time
	}
)

func NewService(
	repo Repository,
	gateway Gateway,
	referrals ReferralTracker,
	notifier Notifier,
	conf *core.Config,
	logger core.Logger,
) *Service {
	currency := conf.Payment.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &Service{
		repo:        repo,
		gateway:     gateway,
		referrals:   referrals,
		notifier:    notifier,
		logger:      logger,
		secret:      conf.Payment.SecretKey,
		currency:    currency,
		callbackURL: conf.Payment.CallbackURL,
		nowFunc:     time.Now,
	}
}

// MaxAmount is the largest amount, in major units, accepted for a registration.
const MaxAmount = 1e9

// ToMinor converts an amount in major currency units to minor units (e.g. naira to kobo).
// Amounts that are not finite, negative or above MaxAmount are rejected.
func ToMinor(amount float64) (int64, error) {
	if math.IsNaN(amount) || amount < 0 || amount > MaxAmount {
		return 0, ErrAmountOutOfRange
	}
	return int64(math.Round(amount * 100)), nil
}

// FormatMinor renders a minor units amount in major units, e.g. 150050 -> "1500.50".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// NewReference returns a fresh payment reference: AUR- followed by 20 upper-case hex chars.
func NewReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return referencePrefix + id[:referenceLen]
}

// Register records a registration with a pending payment and initializes the payment
// with the gateway. On gateway failure the payment is marked failed.
func (svc *Service) Register(ctx context.Context, nr NewRegistration) (InitResult, error) {
	amountMinor, err := ToMinor(nr.Amount)
	if err != nil {
		return InitResult{}, core.NewFieldError("amount", err)
	}

	now := svc.nowFunc().UTC()
	currency := nr.Currency
	if currency == "" {
		currency = svc.currency
	}

	reg := Registration{
		ID:          uuid.New().String(),
		FullName:    nr.FullName,
		Email:       nr.Email,
		Phone:       nr.Phone,
		Program:     nr.Program,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      RegistrationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nr.ReferralCode != "" && svc.referrals != nil {
		active, err := svc.referrals.IsActive(ctx, nr.ReferralCode)
		if err != nil {
			svc.logger.Warn("checking referral code", err, map[string]interface{}{"code": nr.ReferralCode})
		} else if active {
			reg.ReferralCode = null.StringFrom(nr.ReferralCode)
		}
	}

	reg, err = svc.repo.CreateRegistration(ctx, reg)
	if err != nil {
		return InitResult{}, errors.Wrap(err, "creating registration")
	}

	p := Payment{
		ID:             uuid.New().String(),
		RegistrationID: reg.ID,
		Reference:      NewReference(),
		AmountMinor:    reg.AmountMinor,
		Currency:       reg.Currency,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p, err = svc.repo.CreatePayment(ctx, p); err != nil {
		return InitResult{}, errors.Wrap(err, "creating payment")
	}

	resp, err := svc.gateway.Initialize(ctx, InitRequest{
		Email:       reg.Email,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Reference:   p.Reference,
		CallbackURL: svc.callbackURL,
		Metadata:    map[string]string{"registration_id": reg.ID, "program": reg.Program},
	})
	if err != nil {
		p.Status = StatusFailed
		p.UpdatedAt = svc.nowFunc().UTC()
		if _, uErr := svc.repo.UpdatePayment(ctx, p); uErr != nil {
			svc.logger.Error("marking payment failed", uErr, map[string]interface{}{"reference": p.Reference})
		}
		return InitResult{}, errors.Wrap(err, "initializing payment")
	}

	svc.notify(ctx, RegistrationTemplate, reg, map[string]interface{}{
		"FullName":   reg.FullName,
		"Program":    reg.Program,
		"PaymentURL": resp.AuthorizationURL,
	})

	return InitResult{
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Reference:        p.Reference,
	}, nil
}

// Verify asks the gateway for the status of a payment and applies it.
func (svc *Service) Verify(ctx context.Context, reference string) (Payment, error) {
	p, err := svc.repo.GetPaymentByReference(ctx, core.CleanString(reference))
	if err != nil {
		return Payment{}, err
	}
	if p.Status == StatusSuccess {
		return p, nil
	}

	tx, err := svc.gateway.Verify(ctx, p.Reference)
	if err != nil {
		return Payment{}, errors.Wrap(err, "verifying payment")
	}
	return svc.applyStatus(ctx, p, tx.Status, tx.AmountMinor, tx.Raw)
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// HandleWebhook authenticates a gateway callback and applies the charge status it carries.
// Events other than charge.* are ignored.
func (svc *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifySignature(svc.secret, body, signature) {
		return ErrInvalidSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}
	if !strings.HasPrefix(evt.Event, "charge.") {
		svc.logger.Debug("ignoring webhook event", map[string]interface{}{"event": evt.Event})
		return nil
	}
	if evt.Data.Reference == "" {
		return ErrInvalidPayload
	}

	p, err := svc.repo.GetPaymentByReference(ctx, evt.Data.Reference)
	if err != nil {
		return err
	}
	_, err = svc.applyStatus(ctx, p, evt.Data.Status, evt.Data.Amount, body)
	return err
}

// applyStatus moves a payment to the gateway status. It is idempotent: a successful
// payment is never downgraded and its side effects run once.
func (svc *Service) applyStatus(ctx context.Context, p Payment, status string, amountMinor int64, raw []byte) (Payment, error) {
	if p.Status == StatusSuccess {
		return p, nil
	}

	switch status = strings.ToLower(status); status {
	case StatusSuccess, StatusFailed, StatusAbandoned:
	default:
		return p, nil
	}

	if status == StatusSuccess && amountMinor != 0 && amountMinor != p.AmountMinor {
		svc.logger.Error("payment amount mismatch", map[string]interface{}{
			"reference": p.Reference, "expected": p.AmountMinor, "paid": amountMinor,
		})
		return Payment{}, ErrAmountMismatch
	}

	now := svc.nowFunc().UTC()
	p.Status = status
	p.UpdatedAt = now
	if len(raw) > 0 && json.Valid(raw) {
		p.GatewayResponse = null.JSONFrom(raw)
	}
	if status == StatusSuccess {
		p.PaidAt = null.TimeFrom(now)
	}
	// concurrent deliveries race here; only the update that moves the row to success
	// goes on to the side effects below.
	p, err := svc.repo.UpdatePayment(ctx, p)
	if errors.Cause(err) == ErrAlreadyPaid {
		return svc.repo.GetPaymentByReference(ctx, p.Reference)
	}
	if err != nil {
		return Payment{}, errors.Wrap(err, "updating payment")
	}
	if status != StatusSuccess {
		return p, nil
	}

	reg, err := svc.repo.GetRegistration(ctx, p.RegistrationID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "getting registration")
	}
	reg.Status = RegistrationPaid
	reg.UpdatedAt = now
	if reg, err = svc.repo.UpdateRegistration(ctx, reg); err != nil {
		return Payment{}, errors.Wrap(err, "updating registration")
	}

	if reg.ReferralCode.Valid && svc.referrals != nil {
		if err = svc.referrals.RecordConversion(ctx, reg.ReferralCode.String); err != nil {
			svc.logger.Error("recording referral conversion", err, map[string]interface{}{"code": reg.ReferralCode.String})
		}
	}

	svc.notify(ctx, ReceiptTemplate, reg, map[string]interface{}{
		"FullName":  reg.FullName,
		"Program":   reg.Program,
		"Amount":    FormatMinor(p.AmountMinor),
		"Currency":  p.Currency,
		"Reference": p.Reference,
	})

	svc.logger.Info("payment succeeded", map[string]interface{}{"reference": p.Reference})
	return p, nil
}

// notify sends a templated email to the registrant. Failures are logged and swallowed.
func (svc *Service) notify(ctx context.Context, tmpl string, reg Registration, data map[string]interface{}) {
	if svc.notifier == nil {
		return
	}
	to := []mail.Address{{Name: reg.FullName, Address: reg.Email}}
	if err := svc.notifier.SendTemplate(ctx, tmpl, to, data); err != nil {
		svc.logger.Warn("sending "+tmpl+" email", err, map[string]interface{}{"registration": reg.ID})
	}
}

func (svc *Service) GetRegistration(ctx context.Context, id string) (Registration, error) {
	return svc.repo.GetRegistration(ctx, id)
}

func (svc *Service) QueryRegistrations(ctx context.Context, filter RegistrationFilter, ordering []core.DBOrdering) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, filter, ordering)
}

func (svc *Service) GetPayment(ctx context.Context, reference string) (Payment, error) {
	return svc.repo.GetPaymentByReference(ctx, core.CleanString(reference))
}

func (svc *Service) QueryPayments(ctx context.Context, filter PaymentFilter, ordering []core.DBOrdering) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter, ordering)
}
