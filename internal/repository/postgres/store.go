package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ridehail/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn with repositories bound to one database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repos{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Bookings() repository.BookingRepository { return NewBookingRepository(s.db) }
func (s *Store) Wallets() repository.WalletRepository   { return NewWalletRepository(s.db) }
func (s *Store) Earnings() repository.EarningRepository { return NewEarningRepository(s.db) }
func (s *Store) Payments() repository.PaymentRepository { return NewPaymentRepository(s.db) }
func (s *Store) PriceSchedules() repository.PriceScheduleRepository {
	return NewPriceScheduleRepository(s.db)
}

// repos binds every repository to the same transaction.
type repos struct {
	q Querier
}

func (r repos) Bookings() repository.BookingRepository { return &BookingRepository{q: r.q} }
func (r repos) Wallets() repository.WalletRepository   { return &WalletRepository{q: r.q} }
func (r repos) Earnings() repository.EarningRepository { return &EarningRepository{q: r.q} }
func (r repos) Payments() repository.PaymentRepository { return &PaymentRepository{q: r.q} }
func (r repos) PriceSchedules() repository.PriceScheduleRepository {
	return &PriceScheduleRepository{q: r.q}
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
