package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerError(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name       string
		err        *LedgerError
		wantMsg    string
		validation bool
	}{
		{
			name:       "validation with account and amount",
			err:        &LedgerError{Op: "transfer", AccountID: "alice", Amount: 1000, Kind: ErrInsufficientFunds},
			wantMsg:    `transfer: insufficient funds (account "alice") (amount 1000)`,
			validation: true,
		},
		{
			name:       "identifier only",
			err:        &LedgerError{Op: "create_account", Kind: ErrInvalidIdentifier},
			wantMsg:    "create_account: invalid account identifier",
			validation: true,
		},
		{
			name:    "storage failure with cause",
			err:     &LedgerError{Op: "add_funds", AccountID: "bob", Amount: 5, Kind: ErrStorageFailure, Cause: cause},
			wantMsg: `add_funds: storage failure (account "bob") (amount 5): disk full`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.err.Kind)
			assert.Equal(t, tt.validation, IsValidationError(tt.err))
			if tt.err.Cause != nil {
				assert.ErrorIs(t, tt.err, tt.err.Cause)
			}
		})
	}

	assert.False(t, IsValidationError(nil))
	assert.False(t, IsValidationError(errors.New("other")))
}
