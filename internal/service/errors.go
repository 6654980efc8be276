package service

import (
	"errors"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Kind classifies a service error for callers and the transport layer.
type Kind string

const (
	KindValidation            Kind = "VALIDATION"
	KindConflict              Kind = "CONFLICT"
	KindInsufficientFunds     Kind = "INSUFFICIENT_FUNDS"
	KindNotFound              Kind = "NOT_FOUND"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindInternalInconsistency Kind = "INTERNAL_INCONSISTENCY"
)

// Error is a classified, user-visible failure. Code is stable and machine
// readable; Message is the human reason.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code, so errors built from a sentinel
// with a more specific message still compare equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrInvalidRequest is returned when a request fails field validation.
	ErrInvalidRequest = newError(KindValidation, "invalid_request", "invalid request")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = newError(KindValidation, "invalid_location", "invalid location")

	// ErrInvalidPaymentMethod is returned when no supported payment method is chosen.
	ErrInvalidPaymentMethod = newError(KindValidation, "invalid_payment_method", "payment method must be CASH or TRANSFER")

	// ErrInvalidAmount is returned when a money amount is not positive.
	ErrInvalidAmount = newError(KindValidation, "invalid_amount", "amount must be positive")

	// ErrBalanceOverflow is returned when a credit would exceed the largest
	// representable balance.
	ErrBalanceOverflow = newError(KindValidation, "balance_overflow", "amount would overflow the wallet balance")

	// ErrBelowMinimumWithdrawal is returned when a withdrawal is too small.
	ErrBelowMinimumWithdrawal = newError(KindValidation, "below_minimum_withdrawal", "amount is below the minimum withdrawal")

	// ErrWalletNotLinked is returned when a bank account is required but missing.
	ErrWalletNotLinked = newError(KindValidation, "wallet_not_linked", "wallet not linked")

	// ErrRejectReasonRequired is returned when a driver rejects without a reason.
	ErrRejectReasonRequired = newError(KindValidation, "reject_reason_required", "a rejection reason is required")

	// ErrDistanceOutOfRange is returned for trips longer than a fare is quoted for.
	ErrDistanceOutOfRange = newError(KindValidation, "distance_out_of_range", "trip distance is out of range")

	// ErrInvalidPriceSchedule is returned when a tariff is malformed.
	ErrInvalidPriceSchedule = newError(KindValidation, "invalid_price_schedule", "invalid price schedule")

	// ErrNotCashPayment is returned when confirming a payment that is not cash.
	ErrNotCashPayment = newError(KindValidation, "not_cash_payment", "booking is not paid in cash")

	// ErrActiveBookingExists is returned when a rider already has an active booking.
	ErrActiveBookingExists = newError(KindConflict, "active_booking_exists", "rider already has an active booking")

	// ErrInvalidTransition is returned when a state-machine guard fails.
	ErrInvalidTransition = newError(KindConflict, "invalid_state_transition", "booking is not in a state that allows this action")

	// ErrDriverBusy is returned when a driver with an active booking tries to accept another.
	ErrDriverBusy = newError(KindConflict, "driver_busy", "driver already has an active booking")

	// ErrDriverRejected is returned when a driver tries to accept a booking they rejected.
	ErrDriverRejected = newError(KindConflict, "driver_rejected_booking", "driver previously rejected this booking")

	// ErrAlreadyRated is returned when the rider rates a booking twice.
	ErrAlreadyRated = newError(KindConflict, "already_rated", "booking already rated")

	// ErrPaymentNotAwaitingConfirmation is returned when a cash payment is not awaiting confirmation.
	ErrPaymentNotAwaitingConfirmation = newError(KindConflict, "payment_not_awaiting_confirmation", "payment is not awaiting confirmation")

	// ErrSettlementInProgress is returned when another worker holds the settlement lock.
	ErrSettlementInProgress = newError(KindConflict, "settlement_in_progress", "settlement already in progress")

	// ErrInsufficientBalance is returned when a debit exceeds the wallet balance.
	ErrInsufficientBalance = newError(KindInsufficientFunds, "insufficient_balance", "insufficient balance")

	// ErrBookingNotFound is returned when a booking does not exist.
	ErrBookingNotFound = newError(KindNotFound, "booking_not_found", "booking not found")

	// ErrWalletNotFound is returned when a wallet does not exist.
	ErrWalletNotFound = newError(KindNotFound, "wallet_not_found", "wallet not found")

	// ErrEarningNotFound is returned when an earning does not exist.
	ErrEarningNotFound = newError(KindNotFound, "earning_not_found", "earning not found")

	// ErrPaymentNotFound is returned when a payment does not exist.
	ErrPaymentNotFound = newError(KindNotFound, "payment_not_found", "payment not found")

	// ErrNotFound is returned for any other missing entity.
	ErrNotFound = newError(KindNotFound, "not_found", "not found")

	// ErrForbidden is returned when the actor is not a party to the booking
	// or lacks the required role.
	ErrForbidden = newError(KindUnauthorized, "forbidden", "actor is not allowed to perform this action")

	// ErrEarningAlreadyExists is returned when a booking is settled twice.
	ErrEarningAlreadyExists = newError(KindInternalInconsistency, "earning_already_exists", "earning already exists for booking")

	// ErrLedgerMismatch is returned when a wallet balance differs from its log.
	ErrLedgerMismatch = newError(KindInternalInconsistency, "ledger_mismatch", "wallet balance does not match its transactions")
)

// StateConflictError reports a failed guard together with the state the
// booking is actually in.
type StateConflictError struct {
	Err     *Error
	Current domain.BookingState
}

func (e *StateConflictError) Error() string {
	return e.Err.Message + " (current state: " + string(e.Current) + ")"
}

func (e *StateConflictError) Unwrap() error { return e.Err }

func conflictAt(err *Error, current domain.BookingState) error {
	return &StateConflictError{Err: err, Current: current}
}

// KindOf classifies err. Unclassified errors are reported as empty.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	if errors.Is(err, repository.ErrNotFound) {
		return KindNotFound
	}
	return ""
}

// CodeOf returns the machine-readable code of err, or empty.
func CodeOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound.Code
	}
	return ""
}

// notFoundAs replaces repository.ErrNotFound with a specific sentinel.
func notFoundAs(err error, sentinel *Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
