package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/utils"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.users[user.ID]; ok {
			return &repository.DuplicateError{Constraint: "users_pkey"}
		}
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	r.s.read(func(d *state) { user, ok = d.users[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

type productRepository struct{ s *Store }

func (r *productRepository) Create(ctx context.Context, p *domain.LoanProduct) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.products[p.ID]; ok {
			return &repository.DuplicateError{Constraint: "loan_products_pkey"}
		}
		d.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	var (
		p  domain.LoanProduct
		ok bool
	)
	r.s.read(func(d *state) { p, ok = d.products[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *productRepository) List(_ context.Context, activeOnly bool) ([]*domain.LoanProduct, error) {
	var products []*domain.LoanProduct
	r.s.read(func(d *state) {
		for _, p := range d.products {
			if activeOnly && !p.IsActive {
				continue
			}
			p := p
			products = append(products, &p)
		}
	})
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

func (r *productRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	return r.s.write(ctx, func(d *state) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.IsActive = false
		p.ModifiedAt = &at
		p.ModifiedBy = &by
		d.products[id] = p
		return nil
	})
}

type applicationRepository struct{ s *Store }

func (r *applicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.applications {
			if existing.NationalID == app.NationalID {
				return &repository.DuplicateError{Constraint: repository.ConstraintNationalID}
			}
			if app.IsActive && app.Status.CountsAsActive() &&
				existing.UserID == app.UserID && existing.IsActive && existing.Status.CountsAsActive() {
				return &repository.DuplicateError{Constraint: repository.ConstraintActiveUser}
			}
		}
		d.applications[app.ID] = *app
		return nil
	})
}

func (r *applicationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	var (
		app domain.LoanApplication
		ok  bool
	)
	r.s.read(func(d *state) { app, ok = d.applications[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

// LockByID is GetByID: transactions on the store are already serialized.
func (r *applicationRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.LoanApplication) error {
	return r.s.write(ctx, func(d *state) error {
		existing, ok := d.applications[app.ID]
		if !ok {
			return repository.ErrNotFound
		}
		existing.Status = app.Status
		existing.DecisionDate = app.DecisionDate
		existing.DecisionReason = app.DecisionReason
		existing.IsActive = app.IsActive
		existing.ModifiedAt = app.ModifiedAt
		existing.ModifiedBy = app.ModifiedBy
		d.applications[app.ID] = existing
		return nil
	})
}

func (r *applicationRepository) list(match func(a domain.LoanApplication) bool) []*domain.LoanApplication {
	var apps []*domain.LoanApplication
	r.s.read(func(d *state) {
		for _, a := range d.applications {
			if match(a) {
				a := a
				apps = append(apps, &a)
			}
		}
	})
	sortApplications(apps)
	return apps
}

func (r *applicationRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	return r.list(func(a domain.LoanApplication) bool { return a.UserID == userID }), nil
}

func (r *applicationRepository) ListByStatus(_ context.Context, status domain.LoanStatus) ([]*domain.LoanApplication, error) {
	return r.list(func(a domain.LoanApplication) bool { return a.Status == status }), nil
}

func (r *applicationRepository) ListAll(_ context.Context) ([]*domain.LoanApplication, error) {
	return r.list(func(domain.LoanApplication) bool { return true }), nil
}

func (r *applicationRepository) HasActiveLoan(_ context.Context, userID uuid.UUID) (bool, error) {
	active := r.list(func(a domain.LoanApplication) bool {
		return a.UserID == userID && a.IsActive && a.Status.CountsAsActive()
	})
	return len(active) > 0, nil
}

func (r *applicationRepository) IsNationalIDUsed(_ context.Context, nationalID string) (bool, error) {
	used := r.list(func(a domain.LoanApplication) bool { return a.NationalID == nationalID })
	return len(used) > 0, nil
}

type scheduleRepository struct{ s *Store }

func (r *scheduleRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.RepaymentScheduleEntry, error) {
	var (
		e  domain.RepaymentScheduleEntry
		ok bool
	)
	r.s.read(func(d *state) { e, ok = d.schedules[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *scheduleRepository) list(match func(d *state, e domain.RepaymentScheduleEntry) bool) []*domain.RepaymentScheduleEntry {
	var entries []*domain.RepaymentScheduleEntry
	r.s.read(func(d *state) {
		for _, e := range d.schedules {
			if match(d, e) {
				e := e
				entries = append(entries, &e)
			}
		}
	})
	sortEntries(entries)
	return entries
}

func (r *scheduleRepository) GetActiveByApplication(_ context.Context, applicationID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	return r.list(func(_ *state, e domain.RepaymentScheduleEntry) bool {
		return e.LoanApplicationID == applicationID && e.IsActive
	}), nil
}

func (r *scheduleRepository) ReplaceSchedule(ctx context.Context, applicationID uuid.UUID, entries []*domain.RepaymentScheduleEntry, at time.Time, by string) error {
	return r.s.write(ctx, func(d *state) error {
		for id, e := range d.schedules {
			if e.LoanApplicationID == applicationID && e.IsActive {
				e.IsActive = false
				e.ModifiedAt = &at
				e.ModifiedBy = &by
				d.schedules[id] = e
			}
		}
		for _, e := range entries {
			d.schedules[e.ID] = *e
		}
		return nil
	})
}

func (r *scheduleRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	return r.s.write(ctx, func(d *state) error {
		e, ok := d.schedules[id]
		if !ok || !e.IsActive {
			return repository.ErrNotFound
		}
		if e.Status == domain.ScheduleStatusPaid {
			return repository.ErrAlreadyPaid
		}
		e.Status = domain.ScheduleStatusPaid
		e.ModifiedAt = &at
		e.ModifiedBy = &by
		d.schedules[id] = e
		return nil
	})
}

func (r *scheduleRepository) IncreaseTotal(ctx context.Context, id uuid.UUID, delta decimal.Decimal, at time.Time, by string) error {
	return r.s.write(ctx, func(d *state) error {
		e, ok := d.schedules[id]
		if !ok {
			return repository.ErrNotFound
		}
		e.TotalAmount = e.TotalAmount.Add(delta)
		e.ModifiedAt = &at
		e.ModifiedBy = &by
		d.schedules[id] = e
		return nil
	})
}

func (r *scheduleRepository) ListPendingByUser(_ context.Context, userID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	entries := r.list(func(d *state, e domain.RepaymentScheduleEntry) bool {
		app, ok := d.applications[e.LoanApplicationID]
		return ok && app.UserID == userID && e.IsActive && e.Status == domain.ScheduleStatusPending
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].DueDate.Before(entries[j].DueDate) })
	return entries, nil
}

func (r *scheduleRepository) ListOverdue(_ context.Context, asOf time.Time) ([]*domain.RepaymentScheduleEntry, error) {
	entries := r.list(func(_ *state, e domain.RepaymentScheduleEntry) bool {
		return e.IsActive && e.Status == domain.ScheduleStatusPending && utils.IsDateOverdue(e.DueDate, asOf)
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].DueDate.Before(entries[j].DueDate) })
	return entries, nil
}

func (r *scheduleRepository) ListAll(_ context.Context) ([]*domain.RepaymentScheduleEntry, error) {
	return r.list(func(_ *state, e domain.RepaymentScheduleEntry) bool { return e.IsActive }), nil
}

type paymentRepository struct{ s *Store }

func (r *paymentRepository) Create(ctx context.Context, p *domain.PaymentTransaction) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.payments {
			if existing.TransactionRef == p.TransactionRef {
				return &repository.DuplicateError{Constraint: "payment_transactions_transaction_reference_key"}
			}
		}
		d.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepository) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]*domain.PaymentTransaction, error) {
	var payments []*domain.PaymentTransaction
	r.s.read(func(d *state) {
		for _, p := range d.payments {
			if p.LoanApplicationID == applicationID {
				p := p
				payments = append(payments, &p)
			}
		}
	})
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaymentDate.Before(payments[j].PaymentDate) })
	return payments, nil
}
