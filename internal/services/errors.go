package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the ledger. Every error produced by LedgerService wraps
// exactly one of them, so callers can branch with errors.Is.
var (
	// ErrInvalidIdentifier is returned when an account id is empty or whitespace-only.
	ErrInvalidIdentifier = errors.New("invalid account identifier")
	// ErrDuplicateAccount is returned when creating an account whose id already exists.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrUnknownAccount is returned when an operation references an absent account.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrInvalidAmount is returned for non-positive amounts or amounts that would overflow a balance.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSameAccount is returned when sender and receiver of a transfer are equal.
	ErrSameAccount = errors.New("sender and receiver are the same account")
	// ErrInsufficientFunds is returned when the sender's balance is lower than the transfer amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrStorageFailure is returned when the backing store could not persist or load state.
	ErrStorageFailure = errors.New("storage failure")
)

// LedgerError describes a failed ledger operation together with the offending input.
type LedgerError struct {
	Op        string // Operation name, e.g. "transfer"
	AccountID string // Offending account identifier, if any
	Amount    int64  // Offending amount, if any
	Kind      error  // One of the Err* kinds above
	Cause     error  // Underlying backend error for ErrStorageFailure
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.AccountID != "" {
		fmt.Fprintf(&b, " (account %q)", e.AccountID)
	}
	if e.Amount != 0 {
		fmt.Fprintf(&b, " (amount %d)", e.Amount)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the backend cause to errors.Is and errors.As.
func (e *LedgerError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// IsValidationError reports whether err is a deterministic validation failure,
// i.e. retrying with the same input will fail the same way.
func IsValidationError(err error) bool {
	return err != nil && !errors.Is(err, ErrStorageFailure) && (errors.Is(err, ErrInvalidIdentifier) ||
		errors.Is(err, ErrDuplicateAccount) ||
		errors.Is(err, ErrUnknownAccount) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrInsufficientFunds))
}
