package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// ──────────────────────────────────────────────
// 1. SETTLEMENT
// ──────────────────────────────────────────────

func TestSettle_SplitsFare(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		fare    int64
		wantFee int64
		wantNet int64
	}{
		{name: "typical fare", fare: 62000, wantFee: 12400, wantNet: 49600},
		{name: "minimum fare", fare: 15000, wantFee: 3000, wantNet: 12000},
		{name: "fee rounds half up", fare: 33333, wantFee: 6667, wantNet: 26666},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			ctx := context.Background()
			b := env.seedCompleted(t, "b1", tc.fare)

			earning, err := env.ledger.Settle(ctx, b.ID)
			if err != nil {
				t.Fatalf("settle: %v", err)
			}

			if earning.PlatformFeeAmount != tc.wantFee || earning.NetEarning != tc.wantNet {
				t.Errorf("expected fee %d net %d, got %d %d", tc.wantFee, tc.wantNet, earning.PlatformFeeAmount, earning.NetEarning)
			}
			if earning.PlatformFeeAmount+earning.NetEarning != tc.fare {
				t.Errorf("fee + net = %d, want %d", earning.PlatformFeeAmount+earning.NetEarning, tc.fare)
			}
			if earning.TotalEarning != earning.NetEarning {
				t.Errorf("expected total %d, got %d", earning.NetEarning, earning.TotalEarning)
			}
			if earning.SettlementStatus != domain.SettlementPaid {
				t.Errorf("expected PAID, got %s", earning.SettlementStatus)
			}
			if got := env.balance(t, driver.ID); got != tc.wantNet {
				t.Errorf("expected driver balance %d, got %d", tc.wantNet, got)
			}

			stored, _ := env.store.Bookings().GetByID(ctx, b.ID)
			if stored.SettlementPending {
				t.Error("expected settlement marker to be cleared")
			}
		})
	}
}

func TestSettle_TwiceIsInconsistency(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.seedCompleted(t, "b1", 62000)

	if _, err := env.ledger.Settle(ctx, b.ID); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	_, err := env.ledger.Settle(ctx, b.ID)
	if !errors.Is(err, ErrEarningAlreadyExists) {
		t.Fatalf("expected ErrEarningAlreadyExists, got %v", err)
	}
	assertKind(t, err, KindInternalInconsistency)

	if got := env.balance(t, driver.ID); got != 49600 {
		t.Errorf("expected no double credit, got balance %d", got)
	}
	if _, err := env.ledger.Reconcile(ctx, admin, driver.ID); err != nil {
		t.Errorf("reconcile: %v", err)
	}
}

func TestSettle_RequiresCompletedBooking(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	b, _ := env.bookings.Create(ctx, rider, cashRequest(3000))

	_, err := env.ledger.Settle(ctx, b.ID)
	assertConflictAt(t, err, domain.BookingStateCreated)

	if _, err := env.ledger.Settle(ctx, "missing"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestSettle_LockHeldElsewhere(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	locks := newFakeLockStore()
	ledger := NewLedgerService(env.store, locks, LedgerConfig{})
	b := env.seedCompleted(t, "b1", 62000)

	locks.Acquire(ctx, "settlement:"+b.ID, settlementLockTTL)

	if _, err := ledger.Settle(ctx, b.ID); !errors.Is(err, ErrSettlementInProgress) {
		t.Fatalf("expected ErrSettlementInProgress, got %v", err)
	}

	locks.Release(ctx, "settlement:"+b.ID)

	if _, err := ledger.Settle(ctx, b.ID); err != nil {
		t.Fatalf("settle after release: %v", err)
	}
	if len(locks.held) != 0 {
		t.Errorf("expected lock to be released, still held: %v", locks.held)
	}
}

func TestSettle_CustomFeePercent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ledger := NewLedgerService(env.store, nil, LedgerConfig{PlatformFeePercent: 0.15})
	b := env.seedCompleted(t, "b1", 40000)

	earning, err := ledger.Settle(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if earning.PlatformFeeAmount != 6000 || earning.NetEarning != 34000 {
		t.Errorf("expected 6000/34000, got %d/%d", earning.PlatformFeeAmount, earning.NetEarning)
	}
}

// ──────────────────────────────────────────────
// 2. WALLET OPERATIONS
// ──────────────────────────────────────────────

func TestWithdraw(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		actor       domain.Actor
		topUp       int64
		linked      bool
		amount      int64
		wantErr     error
		wantBalance int64
	}{
		{name: "zero amount", actor: driver, topUp: 100000, linked: true, amount: 0, wantErr: ErrInvalidAmount, wantBalance: 100000},
		{name: "below minimum", actor: driver, topUp: 100000, linked: true, amount: 49999, wantErr: ErrBelowMinimumWithdrawal, wantBalance: 100000},
		{name: "not linked", actor: driver, topUp: 100000, linked: false, amount: 50000, wantErr: ErrWalletNotLinked, wantBalance: 100000},
		{name: "insufficient balance", actor: driver, topUp: 60000, linked: true, amount: 70000, wantErr: ErrInsufficientBalance, wantBalance: 60000},
		{name: "rider cannot withdraw", actor: rider, topUp: 100000, linked: true, amount: 50000, wantErr: ErrForbidden, wantBalance: 100000},
		{name: "minimum withdrawal", actor: driver, topUp: 100000, linked: true, amount: 50000, wantBalance: 50000},
		{name: "whole balance", actor: driver, topUp: 80000, linked: true, amount: 80000, wantBalance: 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			ctx := context.Background()
			env.fund(t, tc.actor, tc.topUp, tc.linked)

			_, err := env.ledger.Withdraw(ctx, tc.actor, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if got := env.balance(t, tc.actor.ID); got != tc.wantBalance {
				t.Errorf("expected balance %d, got %d", tc.wantBalance, got)
			}
		})
	}
}

func TestTopUp_RejectsNonPositive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, amount := range []int64{0, -100} {
		if _, err := env.ledger.TopUp(context.Background(), rider, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestTopUp_OverflowIsValidationError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.ledger.TopUp(ctx, rider, math.MaxInt64); err != nil {
		t.Fatalf("first top up: %v", err)
	}

	_, err := env.ledger.TopUp(ctx, rider, 1)
	if !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	assertKind(t, err, KindValidation)
	if got := env.balance(t, rider.ID); got != math.MaxInt64 {
		t.Errorf("balance changed to %d", got)
	}
}

func TestWallet_ConcurrentCreditsAndWithdrawals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	const (
		initial     int64 = 60000
		settlements       = 5
		withdrawals       = 6
		fare        int64 = 20000
		net         int64 = 16000
		withdrawal  int64 = 50000
	)

	env.fund(t, driver, initial, true)
	ids := make([]string, settlements)
	for i := range ids {
		ids[i] = fmt.Sprintf("race-%d", i)
		env.seedCompleted(t, ids[i], fare)
	}

	var wg sync.WaitGroup
	settleErrs := make([]error, settlements)
	withdrawErrs := make([]error, withdrawals)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, settleErrs[i] = env.ledger.Settle(ctx, ids[i])
		}(i)
	}
	for i := 0; i < withdrawals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, withdrawErrs[i] = env.ledger.Withdraw(ctx, driver, withdrawal)
		}(i)
	}
	wg.Wait()

	for i, err := range settleErrs {
		if err != nil {
			t.Errorf("settle %s: %v", ids[i], err)
		}
	}
	succeeded := 0
	for _, err := range withdrawErrs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Errorf("expected insufficient balance for a losing withdrawal, got %v", err)
		}
	}

	w, err := env.ledger.Reconcile(ctx, admin, driver.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if w.Balance < 0 {
		t.Errorf("balance went negative: %d", w.Balance)
	}
	sum, err := env.store.Wallets().SumTransactions(ctx, w.ID)
	if err != nil {
		t.Fatalf("sum transactions: %v", err)
	}
	if sum != w.Balance {
		t.Errorf("balance %d differs from transaction sum %d", w.Balance, sum)
	}
	want := initial + settlements*net - int64(succeeded)*withdrawal
	if w.Balance != want {
		t.Errorf("balance = %d, want %d after %d withdrawals", w.Balance, want, succeeded)
	}
	if succeeded < 1 {
		t.Error("expected at least one withdrawal to succeed")
	}
}

func TestLinkBankAccount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	bad := testAccount
	bad.AccountNumber = "12ab"
	if _, err := env.ledger.LinkBankAccount(ctx, driver, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	w, err := env.ledger.LinkBankAccount(ctx, driver, testAccount)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !w.IsLinked || w.BankAccount == nil || w.BankAccount.BankName != "BCA" {
		t.Errorf("unexpected wallet: %+v", w)
	}

	w, err = env.ledger.UnlinkBankAccount(ctx, driver)
	if err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if w.IsLinked || w.BankAccount != nil {
		t.Errorf("expected unlinked wallet, got %+v", w)
	}
}

func TestGetWallet_CreatesLazily(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.ledger.GetWallet(ctx, rider)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if view.Wallet.Balance != 0 || len(view.Transactions) != 0 {
		t.Errorf("expected empty wallet, got %+v", view)
	}

	env.fund(t, rider, 20000, false)
	env.fund(t, rider, 5000, false)

	view, _ = env.ledger.GetWallet(ctx, rider)
	if len(view.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(view.Transactions))
	}
	if view.Transactions[0].Amount != 5000 {
		t.Errorf("expected newest transaction first, got %d", view.Transactions[0].Amount)
	}
}

func TestReconcile_BalanceEqualsSumOfTransactions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, rider, 200000, true)
	b, err := env.bookings.Create(ctx, rider, transferRequest(5200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.bookings.Accept(ctx, driver, b.ID)
	env.bookings.Complete(ctx, driver, b.ID)
	if _, err := env.ledger.AddTip(ctx, rider, AddTipRequest{BookingID: b.ID, Amount: 3000}); err != nil {
		t.Fatalf("tip: %v", err)
	}

	env.fund(t, driver, 0, true)
	if _, err := env.ledger.Withdraw(ctx, driver, 50000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	for _, userID := range []string{rider.ID, driver.ID} {
		w, err := env.ledger.Reconcile(ctx, admin, userID)
		if err != nil {
			t.Fatalf("reconcile %s: %v", userID, err)
		}
		sum, _ := env.store.Wallets().SumTransactions(ctx, w.ID)
		if sum != w.Balance {
			t.Errorf("%s: balance %d, sum %d", userID, w.Balance, sum)
		}
	}

	if got := env.balance(t, rider.ID); got != 200000-62000-3000 {
		t.Errorf("unexpected rider balance %d", got)
	}
	if got := env.balance(t, driver.ID); got != 49600+3000-50000 {
		t.Errorf("unexpected driver balance %d", got)
	}
}

func TestReconcile_DetectsMismatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, rider, 10000, false)

	w, _ := env.store.Wallets().GetByUserID(ctx, rider.ID)
	env.store.Wallets().UpdateBalance(ctx, w.ID, 12000)

	_, err := env.ledger.Reconcile(ctx, rider, rider.ID)
	if !errors.Is(err, ErrLedgerMismatch) {
		t.Fatalf("expected ErrLedgerMismatch, got %v", err)
	}

	if _, err := env.ledger.Reconcile(ctx, rider2, rider.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for another user, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. TIPS, BONUSES AND EARNINGS
// ──────────────────────────────────────────────

func TestAddTip_CashTripNeedsNoWalletFunds(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.completedBooking(t, rider, driver, 5200)

	if _, err := env.ledger.AddTip(ctx, rider2, AddTipRequest{BookingID: b.ID, Amount: 5000}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	earning, err := env.ledger.AddTip(ctx, rider, AddTipRequest{BookingID: b.ID, Amount: 5000})
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if earning.Tip != 5000 || earning.TotalEarning != 49600+5000 {
		t.Errorf("unexpected earning: tip=%d total=%d", earning.Tip, earning.TotalEarning)
	}
	w, err := env.store.Wallets().GetByUserID(ctx, rider.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		t.Fatalf("rider wallet: %v", err)
	case w.Balance != 0:
		t.Errorf("expected rider balance 0, got %d", w.Balance)
	}
	if got := env.balance(t, driver.ID); got != 54600 {
		t.Errorf("expected driver balance 54600, got %d", got)
	}
}

func TestAddTip_TransferTripDebitsRider(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, rider, 62000, true)
	b, err := env.bookings.Create(ctx, rider, transferRequest(5200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.bookings.Accept(ctx, driver, b.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.bookings.Complete(ctx, driver, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := env.ledger.AddTip(ctx, rider, AddTipRequest{BookingID: b.ID, Amount: 5000}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	env.fund(t, rider, 10000, false)
	earning, err := env.ledger.AddTip(ctx, rider, AddTipRequest{BookingID: b.ID, Amount: 5000})
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if earning.Tip != 5000 {
		t.Errorf("unexpected tip %d", earning.Tip)
	}
	if got := env.balance(t, rider.ID); got != 5000 {
		t.Errorf("expected rider balance 5000, got %d", got)
	}
	if got := env.balance(t, driver.ID); got != 54600 {
		t.Errorf("expected driver balance 54600, got %d", got)
	}
}

func TestAddBonus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.completedBooking(t, rider, driver, 5200)
	earning, _ := env.store.Earnings().GetByBookingID(ctx, b.ID)

	req := AddBonusRequest{EarningID: earning.ID, Amount: 10000, Reason: "peak hour"}

	if _, err := env.ledger.AddBonus(ctx, driver, req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	updated, err := env.ledger.AddBonus(ctx, admin, req)
	if err != nil {
		t.Fatalf("bonus: %v", err)
	}
	if updated.Bonus != 10000 || updated.BonusReason != "peak hour" || updated.TotalEarning != 59600 {
		t.Errorf("unexpected earning: %+v", updated)
	}
	if got := env.balance(t, driver.ID); got != 59600 {
		t.Errorf("expected driver balance 59600, got %d", got)
	}

	if _, err := env.ledger.AddBonus(ctx, admin, AddBonusRequest{EarningID: "missing", Amount: 1}); !errors.Is(err, ErrEarningNotFound) {
		t.Errorf("expected ErrEarningNotFound, got %v", err)
	}
}

func TestListEarnings_Summary(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.completedBooking(t, rider, driver, 5200)
	env.completedBooking(t, rider2, driver, 100)

	earnings, sum, err := env.ledger.ListEarnings(ctx, driver)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(earnings) != 2 || sum.Trips != 2 {
		t.Fatalf("expected 2 earnings, got %d", len(earnings))
	}
	if sum.TotalFare != 62000+15000 {
		t.Errorf("unexpected total fare %d", sum.TotalFare)
	}
	if sum.TotalPlatformFee+sum.TotalNetEarning != sum.TotalFare {
		t.Errorf("fee %d + net %d != fare %d", sum.TotalPlatformFee, sum.TotalNetEarning, sum.TotalFare)
	}
	if sum.PendingSettlement != 0 {
		t.Errorf("expected nothing pending, got %d", sum.PendingSettlement)
	}

	if _, _, err := env.ledger.ListEarnings(ctx, rider); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
