// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness rules as the postgres schema
// and is used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
)

type txContextKey struct{}

type state struct {
	users        map[uuid.UUID]domain.User
	products     map[uuid.UUID]domain.LoanProduct
	applications map[uuid.UUID]domain.LoanApplication
	schedules    map[uuid.UUID]domain.RepaymentScheduleEntry
	payments     map[uuid.UUID]domain.PaymentTransaction
}

func newState() state {
	return state{
		users:        make(map[uuid.UUID]domain.User),
		products:     make(map[uuid.UUID]domain.LoanProduct),
		applications: make(map[uuid.UUID]domain.LoanApplication),
		schedules:    make(map[uuid.UUID]domain.RepaymentScheduleEntry),
		payments:     make(map[uuid.UUID]domain.PaymentTransaction),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// Store holds every table in memory. Transactions are serialized; a failed
// transaction restores the state it started from.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

var _ repository.Transactor = (*Store)(nil)

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txContextKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txContextKey{}).(bool)
	return v
}

// write runs fn with exclusive access to the data. Outside a transaction it
// also waits for any running transaction so a rollback cannot discard it.
func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepository{s: s}
}

func (s *Store) Applications() repository.ApplicationRepository {
	return &applicationRepository{s: s}
}

func (s *Store) Schedules() repository.ScheduleRepository {
	return &scheduleRepository{s: s}
}

func (s *Store) Payments() repository.PaymentRepository {
	return &paymentRepository{s: s}
}

func sortApplications(apps []*domain.LoanApplication) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID.String() < apps[j].ID.String()
	})
}

func sortEntries(entries []*domain.RepaymentScheduleEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LoanApplicationID != entries[j].LoanApplicationID {
			return entries[i].LoanApplicationID.String() < entries[j].LoanApplicationID.String()
		}
		return entries[i].InstallmentNumber < entries[j].InstallmentNumber
	})
}
