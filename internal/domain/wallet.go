package domain

import "time"

// TransactionType classifies a wallet ledger entry.
type TransactionType string

const (
	TransactionTopUp      TransactionType = "TOPUP"
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionRefund     TransactionType = "REFUND"
	TransactionEarning    TransactionType = "EARNING"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// BankAccount is an external account linked to a wallet.
type BankAccount struct {
	BankName      string `json:"bank_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	AccountHolder string `json:"account_holder" validate:"required"`
}

// Wallet holds the balance of a single user.
type Wallet struct {
	ID          string
	UserID      string
	Balance     int64
	BankAccount *BankAccount
	IsLinked    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WalletTransaction is an immutable ledger entry. Amount is signed.
type WalletTransaction struct {
	ID          string
	WalletID    string
	Type        TransactionType
	Amount      int64
	Description string
	BookingID   string
	CreatedAt   time.Time
}
