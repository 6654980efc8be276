package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// WalletRepository is an in-memory implementation of repository.WalletRepository.
type WalletRepository struct {
	run runner
}

// GetByUserID retrieves the wallet of a user.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.run(func(d *data) error {
		id, ok := d.walletByUser[userID]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyWallet(d.wallets[id])
		return nil
	})
	return out, err
}

// GetOrCreateForUpdate returns the user's wallet, creating it when missing.
// The store mutex already serialises writers.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.run(func(d *data) error {
		if id, ok := d.walletByUser[userID]; ok {
			out = copyWallet(d.wallets[id])
			return nil
		}
		now := time.Now()
		w := &domain.Wallet{ID: uuid.New().String(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		d.wallets[w.ID] = w
		d.walletByUser[userID] = w.ID
		out = copyWallet(w)
		return nil
	})
	return out, err
}

// UpdateBalance sets the balance of a wallet.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	return r.run(func(d *data) error {
		w, ok := d.wallets[walletID]
		if !ok {
			return repository.ErrNotFound
		}
		w.Balance = balance
		w.UpdatedAt = time.Now()
		return nil
	})
}

// UpdateBankAccount writes the linked bank account fields.
func (r *WalletRepository) UpdateBankAccount(ctx context.Context, wallet *domain.Wallet) error {
	return r.run(func(d *data) error {
		w, ok := d.wallets[wallet.ID]
		if !ok {
			return repository.ErrNotFound
		}
		w.IsLinked = wallet.IsLinked
		w.BankAccount = nil
		if wallet.BankAccount != nil {
			acc := *wallet.BankAccount
			w.BankAccount = &acc
		}
		w.UpdatedAt = time.Now()
		return nil
	})
}

// AppendTransaction adds an entry to the wallet log.
func (r *WalletRepository) AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	return r.run(func(d *data) error {
		if _, ok := d.wallets[tx.WalletID]; !ok {
			return repository.ErrNotFound
		}
		entry := *tx
		d.walletTxs[tx.WalletID] = append(d.walletTxs[tx.WalletID], &entry)
		return nil
	})
}

// ListTransactions returns the most recent entries, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	var out []*domain.WalletTransaction
	err := r.run(func(d *data) error {
		entries := d.walletTxs[walletID]
		out = make([]*domain.WalletTransaction, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			c := *entries[i]
			out = append(out, &c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// SumTransactions returns the sum of all entry amounts.
func (r *WalletRepository) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := r.run(func(d *data) error {
		for _, e := range d.walletTxs[walletID] {
			sum += e.Amount
		}
		return nil
	})
	return sum, err
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	if w.BankAccount != nil {
		acc := *w.BankAccount
		c.BankAccount = &acc
	}
	return &c
}

// Ensure WalletRepository implements repository.WalletRepository.
var _ repository.WalletRepository = (*WalletRepository)(nil)
