package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/payment"
)

const (
	registrationColumns = "id, full_name, email, phone, program, amount_minor, currency, referral_code, status, created_at, updated_at"
	paymentColumns      = "id, registration_id, reference, amount_minor, currency, status, gateway_response, paid_at, created_at, updated_at"
)

var (
	registrationOrderings = map[string]string{
		"full_name":  "full_name",
		"program":    "program",
		"status":     "status",
		"created_at": "created_at",
	}
	paymentOrderings = map[string]string{
		"status":     "status",
		"paid_at":    "paid_at",
		"created_at": "created_at",
	}
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

// Registrations

func (repo *paymentRepository) CreateRegistration(ctx context.Context, reg payment.Registration) (payment.Registration, error) {
	q := `INSERT INTO registration (` + registrationColumns + `)
		VALUES (:id, :full_name, :email, :phone, :program, :amount_minor, :currency, :referral_code, :status,
		:created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, reg); err != nil {
		return payment.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return reg, nil
}

func (repo *paymentRepository) GetRegistration(ctx context.Context, id string) (payment.Registration, error) {
	var reg payment.Registration
	q := "SELECT " + registrationColumns + " FROM registration WHERE id = $1"
	if err := repo.db.GetContext(ctx, &reg, q, id); err != nil {
		return payment.Registration{}, trapNoRowsErr(err, payment.ErrRegistrationNotFound, "getting registration")
	}
	return reg, nil
}

func (repo *paymentRepository) UpdateRegistration(ctx context.Context, reg payment.Registration) (payment.Registration, error) {
	q := `UPDATE registration SET full_name = :full_name, email = :email, phone = :phone, program = :program,
		amount_minor = :amount_minor, currency = :currency, referral_code = :referral_code, status = :status,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, reg)
	if err = checkAffected(res, err, payment.ErrRegistrationNotFound, "updating registration"); err != nil {
		return payment.Registration{}, err
	}
	return reg, nil
}

func (repo *paymentRepository) QueryRegistrations(
	ctx context.Context,
	filter payment.RegistrationFilter,
	ordering []core.DBOrdering,
) ([]payment.Registration, error) {
	w := &where{}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add("(full_name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Program != "" {
		w.add("LOWER(program) = LOWER(?)", filter.Program)
	}

	regs := make([]payment.Registration, 0)
	orderBy := core.OrderByClause(ordering, registrationOrderings, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &regs, selectQuery(repo.db, registrationColumns, "registration", w, orderBy), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	return regs, nil
}

// Payments

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `INSERT INTO payment (` + paymentColumns + `)
		VALUES (:id, :registration_id, :reference, :amount_minor, :currency, :status, :gateway_response, :paid_at,
		:created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, p); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPaymentByReference(ctx context.Context, reference string) (payment.Payment, error) {
	var p payment.Payment
	q := "SELECT " + paymentColumns + " FROM payment WHERE reference = $1"
	if err := repo.db.GetContext(ctx, &p, q, reference); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "getting payment")
	}
	return p, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `UPDATE payment SET status = :status, gateway_response = :gateway_response, paid_at = :paid_at,
		updated_at = :updated_at WHERE reference = :reference AND status <> 'success'`
	res, err := repo.db.NamedExecContext(ctx, q, p)
	err = checkAffected(res, err, payment.ErrNotFound, "updating payment")
	if err == payment.ErrNotFound {
		if _, gErr := repo.GetPaymentByReference(ctx, p.Reference); gErr == nil {
			return payment.Payment{}, payment.ErrAlreadyPaid
		}
	}
	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.PaymentFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.RegistrationID != "" {
		w.add("registration_id = ?", filter.RegistrationID)
	}

	payments := make([]payment.Payment, 0)
	orderBy := core.OrderByClause(ordering, paymentOrderings, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &payments, selectQuery(repo.db, paymentColumns, "payment", w, orderBy), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}
