package repository

import "context"

// Repositories groups the repositories that share one unit of work.
type Repositories interface {
	Bookings() BookingRepository
	Wallets() WalletRepository
	Earnings() EarningRepository
	Payments() PaymentRepository
	PriceSchedules() PriceScheduleRepository
}

// Store is the persistence root. WithinTx runs fn against repositories bound
// to a single transaction: fn's writes are committed together when it
// returns nil and discarded otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
