package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const (
	// DefaultPlatformFeePercent is the share of the fare kept by the platform.
	DefaultPlatformFeePercent = 0.20
	// DefaultMinWithdrawalAmount is the smallest accepted withdrawal.
	DefaultMinWithdrawalAmount int64 = 50000

	settlementLockTTL = 30 * time.Second
	recentTxLimit     = 20
)

// LedgerConfig holds the money rules of the ledger.
type LedgerConfig struct {
	PlatformFeePercent  float64
	MinWithdrawalAmount int64
}

// LedgerService moves money between wallets and settles completed trips.
type LedgerService struct {
	store     repository.Store
	lockStore redis.LockStoreInterface
	cfg       LedgerConfig
	now       func() time.Time
}

// NewLedgerService creates a new LedgerService. lockStore may be nil.
func NewLedgerService(store repository.Store, lockStore redis.LockStoreInterface, cfg LedgerConfig) *LedgerService {
	if cfg.PlatformFeePercent <= 0 {
		cfg.PlatformFeePercent = DefaultPlatformFeePercent
	}
	if cfg.MinWithdrawalAmount <= 0 {
		cfg.MinWithdrawalAmount = DefaultMinWithdrawalAmount
	}
	return &LedgerService{
		store:     store,
		lockStore: lockStore,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ──────────────────────────────────────────────────────────────
// Wallet primitives. Callers run them inside a transaction; the
// wallet row stays locked until it ends.
// ──────────────────────────────────────────────────────────────

type entry struct {
	userID      string
	txType      domain.TransactionType
	amount      int64 // always positive; direction comes from credit/debit
	description string
	bookingID   string
}

func (s *LedgerService) credit(ctx context.Context, repos repository.Repositories, e entry) (*domain.Wallet, error) {
	wallets := repos.Wallets()
	w, err := wallets.GetOrCreateForUpdate(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, wallets, w, e, e.amount)
}

func (s *LedgerService) debit(ctx context.Context, repos repository.Repositories, e entry, requireLinked bool) (*domain.Wallet, error) {
	wallets := repos.Wallets()
	w, err := wallets.GetOrCreateForUpdate(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	if requireLinked && !w.IsLinked {
		return nil, ErrWalletNotLinked
	}
	if w.Balance < e.amount {
		return nil, ErrInsufficientBalance
	}
	return s.apply(ctx, wallets, w, e, -e.amount)
}

func (s *LedgerService) apply(ctx context.Context, wallets repository.WalletRepository, w *domain.Wallet, e entry, signed int64) (*domain.Wallet, error) {
	if signed > 0 && w.Balance > math.MaxInt64-signed {
		return nil, ErrBalanceOverflow
	}
	balance := w.Balance + signed
	if balance < 0 {
		return nil, ErrInsufficientBalance
	}

	tx := &domain.WalletTransaction{
		ID:          uuid.New().String(),
		WalletID:    w.ID,
		Type:        e.txType,
		Amount:      signed,
		Description: e.description,
		BookingID:   e.bookingID,
		CreatedAt:   s.now(),
	}
	if err := wallets.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := wallets.UpdateBalance(ctx, w.ID, balance); err != nil {
		return nil, err
	}

	w.Balance = balance
	return w, nil
}

// preDebit charges the fare of a TRANSFER booking to the rider.
func (s *LedgerService) preDebit(ctx context.Context, repos repository.Repositories, b *domain.Booking) error {
	_, err := s.debit(ctx, repos, entry{
		userID:      b.RiderID,
		txType:      domain.TransactionPayment,
		amount:      b.FareAmount,
		description: "Payment for booking " + b.ID,
		bookingID:   b.ID,
	}, true)
	return err
}

// refund returns a pre-debited fare to the rider.
func (s *LedgerService) refund(ctx context.Context, repos repository.Repositories, b *domain.Booking) error {
	_, err := s.credit(ctx, repos, entry{
		userID:      b.RiderID,
		txType:      domain.TransactionRefund,
		amount:      b.FareAmount,
		description: "Refund for cancelled booking " + b.ID,
		bookingID:   b.ID,
	})
	return err
}

// ──────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────

// Settle creates the driver earning of a completed booking, credits the net
// amount to the driver and clears the booking's pending-settlement marker,
// all in one transaction. Settling a booking that already has an earning
// returns ErrEarningAlreadyExists without changing anything.
func (s *LedgerService) Settle(ctx context.Context, bookingID string) (*domain.DriverEarning, error) {
	if s.lockStore != nil {
		lockName := "settlement:" + bookingID
		acquired, err := s.lockStore.Acquire(ctx, lockName, settlementLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire settlement lock: %w", err)
		}
		if !acquired {
			return nil, ErrSettlementInProgress
		}
		defer func() {
			if err := s.lockStore.Release(ctx, lockName); err != nil {
				log.Printf("[SETTLEMENT] failed to release lock for booking %s: %v", bookingID, err)
			}
		}()
	}

	var earning *domain.DriverEarning
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		b, err := repos.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return notFoundAs(err, ErrBookingNotFound)
		}
		if b.State != domain.BookingStateCompleted {
			return conflictAt(ErrInvalidTransition, b.State)
		}

		_, err = repos.Earnings().GetByBookingID(ctx, bookingID)
		if err == nil {
			return ErrEarningAlreadyExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		earning = domain.NewDriverEarning(b, s.cfg.PlatformFeePercent)
		earning.ID = uuid.New().String()
		earning.CreatedAt = now
		earning.UpdatedAt = now
		if err := repos.Earnings().Create(ctx, earning); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEarningAlreadyExists
			}
			return err
		}

		if _, err := s.credit(ctx, repos, entry{
			userID:      b.DriverID,
			txType:      domain.TransactionEarning,
			amount:      earning.NetEarning,
			description: "Earning for booking " + b.ID,
			bookingID:   b.ID,
		}); err != nil {
			return err
		}

		earning.SettlementStatus = domain.SettlementPaid
		if err := repos.Earnings().Update(ctx, earning); err != nil {
			return err
		}

		expected := b.Version
		b.SettlementPending = false
		b.UpdatedAt = now
		if err := repos.Bookings().Update(ctx, b, expected); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return conflictAt(ErrInvalidTransition, b.State)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[SETTLEMENT] booking=%s driver=%s fare=%d fee=%d net=%d",
		earning.BookingID, earning.DriverID, earning.FareAmount, earning.PlatformFeeAmount, earning.NetEarning)

	return earning, nil
}

// ──────────────────────────────────────────────────────────────
// Tips and bonuses
// ──────────────────────────────────────────────────────────────

// AddTipRequest contains the parameters for tipping a driver.
type AddTipRequest struct {
	BookingID string `validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
}

// AddTip moves a tip from the rider's wallet to the driver's and adds it to
// the booking's earning.
func (s *LedgerService) AddTip(ctx context.Context, actor domain.Actor, req AddTipRequest) (*domain.DriverEarning, error) {
	if err := requireRole(actor, domain.RoleRider); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var earning *domain.DriverEarning
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		b, err := repos.Bookings().GetByID(ctx, req.BookingID)
		if err != nil {
			return notFoundAs(err, ErrBookingNotFound)
		}
		if b.RiderID != actor.ID {
			return ErrForbidden
		}
		if b.State != domain.BookingStateCompleted {
			return conflictAt(ErrInvalidTransition, b.State)
		}

		earning, err = repos.Earnings().GetByBookingID(ctx, b.ID)
		if err != nil {
			return notFoundAs(err, ErrEarningNotFound)
		}

		// Cash tips change hands with the fare; only wallet-paid trips debit the rider.
		if b.PaymentMethod == domain.PaymentMethodTransfer {
			if _, err := s.debit(ctx, repos, entry{
				userID:      b.RiderID,
				txType:      domain.TransactionPayment,
				amount:      req.Amount,
				description: "Tip for booking " + b.ID,
				bookingID:   b.ID,
			}, false); err != nil {
				return err
			}
		}
		if _, err := s.credit(ctx, repos, entry{
			userID:      earning.DriverID,
			txType:      domain.TransactionEarning,
			amount:      req.Amount,
			description: "Tip for booking " + b.ID,
			bookingID:   b.ID,
		}); err != nil {
			return err
		}

		earning.Tip += req.Amount
		earning.Recompute()
		earning.UpdatedAt = s.now()
		return repos.Earnings().Update(ctx, earning)
	})
	if err != nil {
		return nil, err
	}
	return earning, nil
}

// AddBonusRequest contains the parameters for granting a bonus.
type AddBonusRequest struct {
	EarningID string `validate:"required"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Reason    string `json:"reason" validate:"max=255"`
}

// AddBonus grants a platform-funded bonus on an earning and credits it to
// the driver. Admin only.
func (s *LedgerService) AddBonus(ctx context.Context, actor domain.Actor, req AddBonusRequest) (*domain.DriverEarning, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var earning *domain.DriverEarning
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		earning, err = repos.Earnings().GetByID(ctx, req.EarningID)
		if err != nil {
			return notFoundAs(err, ErrEarningNotFound)
		}

		if req.Amount > 0 {
			if _, err := s.credit(ctx, repos, entry{
				userID:      earning.DriverID,
				txType:      domain.TransactionEarning,
				amount:      req.Amount,
				description: "Bonus: " + req.Reason,
				bookingID:   earning.BookingID,
			}); err != nil {
				return err
			}
		}

		earning.Bonus += req.Amount
		if req.Reason != "" {
			earning.BonusReason = req.Reason
		}
		earning.Recompute()
		earning.UpdatedAt = s.now()
		return repos.Earnings().Update(ctx, earning)
	})
	if err != nil {
		return nil, err
	}
	return earning, nil
}

// ──────────────────────────────────────────────────────────────
// Wallet operations
// ──────────────────────────────────────────────────────────────

// Withdraw pays out part of a driver's balance to the linked bank account.
func (s *LedgerService) Withdraw(ctx context.Context, actor domain.Actor, amount int64) (*domain.Wallet, error) {
	if err := requireRole(actor, domain.RoleDriver); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount < s.cfg.MinWithdrawalAmount {
		return nil, ErrBelowMinimumWithdrawal
	}

	var wallet *domain.Wallet
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		wallet, err = s.debit(ctx, repos, entry{
			userID:      actor.ID,
			txType:      domain.TransactionWithdrawal,
			amount:      amount,
			description: "Withdrawal to bank account",
		}, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// TopUp adds funds to the actor's wallet.
func (s *LedgerService) TopUp(ctx context.Context, actor domain.Actor, amount int64) (*domain.Wallet, error) {
	if err := requireRole(actor, domain.RoleRider, domain.RoleDriver); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var wallet *domain.Wallet
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		wallet, err = s.credit(ctx, repos, entry{
			userID:      actor.ID,
			txType:      domain.TransactionTopUp,
			amount:      amount,
			description: "Wallet top-up",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// LinkBankAccount attaches a bank account to the actor's wallet.
func (s *LedgerService) LinkBankAccount(ctx context.Context, actor domain.Actor, account domain.BankAccount) (*domain.Wallet, error) {
	if err := requireRole(actor, domain.RoleRider, domain.RoleDriver); err != nil {
		return nil, err
	}
	if err := validateRequest(account); err != nil {
		return nil, err
	}
	return s.setBankAccount(ctx, actor.ID, &account)
}

// UnlinkBankAccount removes the bank account from the actor's wallet.
func (s *LedgerService) UnlinkBankAccount(ctx context.Context, actor domain.Actor) (*domain.Wallet, error) {
	if err := requireRole(actor, domain.RoleRider, domain.RoleDriver); err != nil {
		return nil, err
	}
	return s.setBankAccount(ctx, actor.ID, nil)
}

func (s *LedgerService) setBankAccount(ctx context.Context, userID string, account *domain.BankAccount) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		wallet, err = repos.Wallets().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		wallet.BankAccount = account
		wallet.IsLinked = account != nil
		return repos.Wallets().UpdateBankAccount(ctx, wallet)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// WalletView is a wallet with its most recent transactions.
type WalletView struct {
	Wallet       *domain.Wallet
	Transactions []*domain.WalletTransaction
}

// GetWallet returns the actor's wallet, creating an empty one on first use.
func (s *LedgerService) GetWallet(ctx context.Context, actor domain.Actor) (*WalletView, error) {
	if err := requireRole(actor, domain.RoleRider, domain.RoleDriver); err != nil {
		return nil, err
	}

	var view WalletView
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		view.Wallet, err = repos.Wallets().GetOrCreateForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		view.Transactions, err = repos.Wallets().ListTransactions(ctx, view.Wallet.ID, recentTxLimit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Reconcile checks that a wallet's balance equals the sum of its log.
// Admins may check any user; others only themselves.
func (s *LedgerService) Reconcile(ctx context.Context, actor domain.Actor, userID string) (*domain.Wallet, error) {
	if actor.Role != domain.RoleAdmin && actor.ID != userID {
		return nil, ErrForbidden
	}

	wallet, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, ErrWalletNotFound)
	}
	sum, err := s.store.Wallets().SumTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	if sum != wallet.Balance || wallet.Balance < 0 {
		log.Printf("[LEDGER] wallet %s of user %s: balance=%d, transactions sum=%d", wallet.ID, userID, wallet.Balance, sum)
		return wallet, ErrLedgerMismatch
	}
	return wallet, nil
}

// ──────────────────────────────────────────────────────────────
// Earnings
// ──────────────────────────────────────────────────────────────

// EarningsSummary aggregates a driver's earnings.
type EarningsSummary struct {
	Trips             int
	TotalFare         int64
	TotalPlatformFee  int64
	TotalNetEarning   int64
	TotalBonus        int64
	TotalTip          int64
	TotalEarning      int64
	PendingSettlement int
}

// ListEarnings returns a driver's earnings, newest first, with totals.
func (s *LedgerService) ListEarnings(ctx context.Context, actor domain.Actor) ([]*domain.DriverEarning, EarningsSummary, error) {
	if err := requireRole(actor, domain.RoleDriver); err != nil {
		return nil, EarningsSummary{}, err
	}

	earnings, err := s.store.Earnings().ListByDriver(ctx, actor.ID)
	if err != nil {
		return nil, EarningsSummary{}, err
	}

	var sum EarningsSummary
	for _, e := range earnings {
		sum.Trips++
		sum.TotalFare += e.FareAmount
		sum.TotalPlatformFee += e.PlatformFeeAmount
		sum.TotalNetEarning += e.NetEarning
		sum.TotalBonus += e.Bonus
		sum.TotalTip += e.Tip
		sum.TotalEarning += e.TotalEarning
		if e.SettlementStatus == domain.SettlementPending {
			sum.PendingSettlement++
		}
	}

	return earnings, sum, nil
}
