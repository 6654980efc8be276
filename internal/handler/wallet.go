package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// WalletHandler handles HTTP requests for wallets, earnings and tips.
type WalletHandler struct {
	ledgerService *service.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerService *service.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

// AmountRequest is the HTTP request body for money movements.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// BankAccountRequest is the HTTP request body for linking a bank account.
type BankAccountRequest struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// TransactionResponse is the HTTP response for a wallet ledger entry.
type TransactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BookingID   string `json:"booking_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// WalletResponse is the HTTP response for wallet data.
type WalletResponse struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	Balance      int64                 `json:"balance"`
	IsLinked     bool                  `json:"is_linked"`
	BankAccount  *BankAccountRequest   `json:"bank_account,omitempty"`
	Transactions []TransactionResponse `json:"transactions,omitempty"`
}

func toWalletResponse(w *domain.Wallet, txs []*domain.WalletTransaction) WalletResponse {
	resp := WalletResponse{
		ID:       w.ID,
		UserID:   w.UserID,
		Balance:  w.Balance,
		IsLinked: w.IsLinked,
	}
	if w.BankAccount != nil {
		resp.BankAccount = &BankAccountRequest{
			BankName:      w.BankAccount.BankName,
			AccountNumber: w.BankAccount.AccountNumber,
			AccountHolder: w.BankAccount.AccountHolder,
		}
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, TransactionResponse{
			ID:          tx.ID,
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			Description: tx.Description,
			BookingID:   tx.BookingID,
			CreatedAt:   formatTime(tx.CreatedAt),
		})
	}
	return resp
}

// EarningResponse is the HTTP response for a driver earning.
type EarningResponse struct {
	ID                 string  `json:"id"`
	DriverID           string  `json:"driver_id"`
	BookingID          string  `json:"booking_id"`
	FareAmount         int64   `json:"fare_amount"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	PlatformFeeAmount  int64   `json:"platform_fee_amount"`
	NetEarning         int64   `json:"net_earning"`
	Bonus              int64   `json:"bonus"`
	BonusReason        string  `json:"bonus_reason,omitempty"`
	Tip                int64   `json:"tip"`
	TotalEarning       int64   `json:"total_earning"`
	SettlementStatus   string  `json:"settlement_status"`
	CreatedAt          string  `json:"created_at"`
}

func toEarningResponse(e *domain.DriverEarning) EarningResponse {
	return EarningResponse{
		ID:                 e.ID,
		DriverID:           e.DriverID,
		BookingID:          e.BookingID,
		FareAmount:         e.FareAmount,
		PlatformFeePercent: e.PlatformFeePercent,
		PlatformFeeAmount:  e.PlatformFeeAmount,
		NetEarning:         e.NetEarning,
		Bonus:              e.Bonus,
		BonusReason:        e.BonusReason,
		Tip:                e.Tip,
		TotalEarning:       e.TotalEarning,
		SettlementStatus:   string(e.SettlementStatus),
		CreatedAt:          formatTime(e.CreatedAt),
	}
}

// Get handles GET /v1/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	view, err := h.ledgerService.GetWallet(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(view.Wallet, view.Transactions))
}

// TopUp handles POST /v1/wallet/topup
func (h *WalletHandler) TopUp(c *gin.Context) {
	h.move(c, h.ledgerService.TopUp)
}

// Withdraw handles POST /v1/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, h.ledgerService.Withdraw)
}

func (h *WalletHandler) move(c *gin.Context, fn func(ctx context.Context, actor domain.Actor, amount int64) (*domain.Wallet, error)) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := fn(c.Request.Context(), actor, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(w, nil))
}

// LinkBankAccount handles PUT /v1/wallet/bank-account
func (h *WalletHandler) LinkBankAccount(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req BankAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := h.ledgerService.LinkBankAccount(c.Request.Context(), actor, domain.BankAccount{
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(w, nil))
}

// UnlinkBankAccount handles DELETE /v1/wallet/bank-account
func (h *WalletHandler) UnlinkBankAccount(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	w, err := h.ledgerService.UnlinkBankAccount(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(w, nil))
}

// Reconcile handles GET /v1/wallets/:userId/reconcile
func (h *WalletHandler) Reconcile(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	w, err := h.ledgerService.Reconcile(c.Request.Context(), actor, c.Param("userId"))
	if err != nil && !errors.Is(err, service.ErrLedgerMismatch) {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"wallet":     toWalletResponse(w, nil),
		"consistent": err == nil,
	})
}

// Earnings handles GET /v1/driver/earnings
func (h *WalletHandler) Earnings(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	earnings, sum, err := h.ledgerService.ListEarnings(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]EarningResponse, 0, len(earnings))
	for _, e := range earnings {
		items = append(items, toEarningResponse(e))
	}
	respondJSON(c, http.StatusOK, gin.H{
		"earnings": items,
		"summary": gin.H{
			"trips":              sum.Trips,
			"total_fare":         sum.TotalFare,
			"total_platform_fee": sum.TotalPlatformFee,
			"total_net_earning":  sum.TotalNetEarning,
			"total_bonus":        sum.TotalBonus,
			"total_tip":          sum.TotalTip,
			"total_earning":      sum.TotalEarning,
			"pending_settlement": sum.PendingSettlement,
		},
	})
}

// Tip handles POST /v1/bookings/:id/tip
func (h *WalletHandler) Tip(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.ledgerService.AddTip(c.Request.Context(), actor, service.AddTipRequest{
		BookingID: c.Param("id"),
		Amount:    req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toEarningResponse(e))
}

// BonusRequest is the HTTP request body for granting a bonus.
type BonusRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// Bonus handles POST /v1/earnings/:id/bonus
func (h *WalletHandler) Bonus(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req BonusRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.ledgerService.AddBonus(c.Request.Context(), actor, service.AddBonusRequest{
		EarningID: c.Param("id"),
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toEarningResponse(e))
}
