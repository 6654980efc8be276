package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

const walletColumns = `id, user_id, balance, bank_name, account_number, account_holder, is_linked, created_at, updated_at`

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	var bankName, accountNumber, accountHolder sql.NullString

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Balance,
		&bankName,
		&accountNumber,
		&accountHolder,
		&w.IsLinked,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	if bankName.Valid || accountNumber.Valid {
		w.BankAccount = &domain.BankAccount{
			BankName:      bankName.String,
			AccountNumber: accountNumber.String,
			AccountHolder: accountHolder.String,
		}
	}

	return &w, nil
}

// GetByUserID retrieves the wallet of a user.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.q.QueryRowContext(ctx, query, userID))
}

// GetOrCreateForUpdate returns the user's wallet, creating it when missing,
// and holds a row lock until the transaction ends.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	now := time.Now()
	insert := `
		INSERT INTO wallets (id, user_id, balance, is_linked, created_at, updated_at)
		VALUES ($1, $2, 0, FALSE, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, insert, uuid.New().String(), userID, now); err != nil {
		return nil, err
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(r.q.QueryRowContext(ctx, query, userID))
}

// UpdateBalance sets the balance of a wallet.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, balance, time.Now(), walletID)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// UpdateBankAccount writes the linked bank account fields.
func (r *WalletRepository) UpdateBankAccount(ctx context.Context, w *domain.Wallet) error {
	query := `
		UPDATE wallets
		SET bank_name = $1, account_number = $2, account_holder = $3, is_linked = $4, updated_at = $5
		WHERE id = $6
	`

	var bankName, accountNumber, accountHolder sql.NullString
	if w.BankAccount != nil {
		bankName = nullString(w.BankAccount.BankName)
		accountNumber = nullString(w.BankAccount.AccountNumber)
		accountHolder = nullString(w.BankAccount.AccountHolder)
	}

	result, err := r.q.ExecContext(ctx, query, bankName, accountNumber, accountHolder, w.IsLinked, time.Now(), w.ID)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// AppendTransaction adds an entry to the wallet log.
func (r *WalletRepository) AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, type, amount, description, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.WalletID,
		tx.Type,
		tx.Amount,
		tx.Description,
		nullString(tx.BookingID),
		tx.CreatedAt,
	)

	return translate(err)
}

// ListTransactions returns the most recent entries, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, description, booking_id, created_at
		FROM wallet_transactions WHERE wallet_id = $1 ORDER BY seq DESC
	`
	args := []any{walletID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		var bookingID sql.NullString

		if err := rows.Scan(
			&tx.ID,
			&tx.WalletID,
			&tx.Type,
			&tx.Amount,
			&tx.Description,
			&bookingID,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}

		tx.BookingID = bookingID.String
		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}

// SumTransactions returns the sum of all entry amounts.
func (r *WalletRepository) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_id = $1`
	err := r.q.QueryRowContext(ctx, query, walletID).Scan(&sum)
	return sum, err
}

// Ensure WalletRepository implements repository.WalletRepository.
var _ repository.WalletRepository = (*WalletRepository)(nil)
