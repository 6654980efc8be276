package repository

import (
	"context"

	"ridehail/internal/domain"
)

// WalletRepository defines the persistence operations for wallets and
// their transaction log.
type WalletRepository interface {
	// GetByUserID retrieves the wallet of a user.
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)

	// GetOrCreateForUpdate returns the user's wallet, creating an empty one
	// if needed, and locks it until the surrounding transaction ends.
	GetOrCreateForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)

	// UpdateBalance sets the balance of a wallet.
	UpdateBalance(ctx context.Context, walletID string, balance int64) error

	// UpdateBankAccount writes the linked bank account fields.
	UpdateBankAccount(ctx context.Context, wallet *domain.Wallet) error

	// AppendTransaction adds an entry to the wallet log.
	AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error

	// ListTransactions returns the most recent entries, newest first.
	// A limit of 0 returns every entry.
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error)

	// SumTransactions returns the sum of all entry amounts.
	SumTransactions(ctx context.Context, walletID string) (int64, error)
}
