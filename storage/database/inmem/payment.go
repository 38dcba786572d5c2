package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/payment"
)

type paymentRepository struct {
	db *paymentTables
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

// Registrations

func (repo *paymentRepository) CreateRegistration(_ context.Context, reg payment.Registration) (payment.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.registrations[reg.ID] = &reg
	return reg, nil
}

func (repo *paymentRepository) GetRegistration(_ context.Context, id string) (payment.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.registrations[id]; ok {
		return *reg, nil
	}
	return payment.Registration{}, payment.ErrRegistrationNotFound
}

func (repo *paymentRepository) UpdateRegistration(_ context.Context, reg payment.Registration) (payment.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.registrations[reg.ID]; !ok {
		return payment.Registration{}, payment.ErrRegistrationNotFound
	}
	repo.db.registrations[reg.ID] = &reg
	return reg, nil
}

func (repo *paymentRepository) QueryRegistrations(
	_ context.Context,
	filter payment.RegistrationFilter,
	_ []core.DBOrdering,
) ([]payment.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]payment.Registration, 0)
	for _, reg := range repo.db.registrations {
		if filter.Search != "" && !containsFold(reg.FullName, filter.Search) && !containsFold(reg.Email, filter.Search) {
			continue
		}
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		if filter.Program != "" && !strings.EqualFold(reg.Program, filter.Program) {
			continue
		}
		regs = append(regs, *reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })
	return regs, nil
}

// Payments

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.payments[p.Reference] = &p
	return p, nil
}

func (repo *paymentRepository) GetPaymentByReference(_ context.Context, reference string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.payments[reference]; ok {
		return *p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.payments[p.Reference]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if stored.Status == payment.StatusSuccess {
		return payment.Payment{}, payment.ErrAlreadyPaid
	}
	repo.db.payments[p.Reference] = &p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.PaymentFilter, _ []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.RegistrationID != "" && p.RegistrationID != filter.RegistrationID {
			continue
		}
		payments = append(payments, *p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}
