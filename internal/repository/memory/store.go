// Package memory provides in-process implementations of the repository
// ports. Every operation is serialised by one mutex, and WithinTx works on a
// copy of the data that replaces the live copy only on success.
package memory

import (
	"context"
	"sync"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

type data struct {
	bookings         map[string]*domain.Booking
	wallets          map[string]*domain.Wallet
	walletByUser     map[string]string
	walletTxs        map[string][]*domain.WalletTransaction
	earnings         map[string]*domain.DriverEarning
	earningByBooking map[string]string
	payments         map[string]*domain.Payment
	paymentByBooking map[string]string
	schedules        map[string]*domain.PriceSchedule
}

func newData() *data {
	return &data{
		bookings:         make(map[string]*domain.Booking),
		wallets:          make(map[string]*domain.Wallet),
		walletByUser:     make(map[string]string),
		walletTxs:        make(map[string][]*domain.WalletTransaction),
		earnings:         make(map[string]*domain.DriverEarning),
		earningByBooking: make(map[string]string),
		payments:         make(map[string]*domain.Payment),
		paymentByBooking: make(map[string]string),
		schedules:        make(map[string]*domain.PriceSchedule),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.bookings {
		c.bookings[k] = v.Clone()
	}
	for k, v := range d.wallets {
		c.wallets[k] = copyWallet(v)
	}
	for k, v := range d.walletByUser {
		c.walletByUser[k] = v
	}
	for k, v := range d.walletTxs {
		// Entries are immutable, sharing the pointers is safe.
		c.walletTxs[k] = append([]*domain.WalletTransaction(nil), v...)
	}
	for k, v := range d.earnings {
		e := *v
		c.earnings[k] = &e
	}
	for k, v := range d.earningByBooking {
		c.earningByBooking[k] = v
	}
	for k, v := range d.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range d.paymentByBooking {
		c.paymentByBooking[k] = v
	}
	for k, v := range d.schedules {
		s := *v
		c.schedules[k] = &s
	}
	return c
}

// runner executes fn against the data set a repository is bound to.
type runner func(fn func(d *data) error) error

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *data
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newData()}
}

func (s *Store) run(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithinTx runs fn on a private copy of the data and publishes the copy when
// fn succeeds. Concurrent transactions are fully serialised.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	bound := repos{run: func(f func(d *data) error) error { return f(work) }}
	if err := fn(bound); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) Bookings() repository.BookingRepository { return &BookingRepository{run: s.run} }
func (s *Store) Wallets() repository.WalletRepository   { return &WalletRepository{run: s.run} }
func (s *Store) Earnings() repository.EarningRepository { return &EarningRepository{run: s.run} }
func (s *Store) Payments() repository.PaymentRepository { return &PaymentRepository{run: s.run} }
func (s *Store) PriceSchedules() repository.PriceScheduleRepository {
	return &PriceScheduleRepository{run: s.run}
}

type repos struct {
	run runner
}

func (r repos) Bookings() repository.BookingRepository { return &BookingRepository{run: r.run} }
func (r repos) Wallets() repository.WalletRepository   { return &WalletRepository{run: r.run} }
func (r repos) Earnings() repository.EarningRepository { return &EarningRepository{run: r.run} }
func (r repos) Payments() repository.PaymentRepository { return &PaymentRepository{run: r.run} }
func (r repos) PriceSchedules() repository.PriceScheduleRepository {
	return &PriceScheduleRepository{run: r.run}
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
