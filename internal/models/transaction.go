package models

import "time"

// TransactionRecord is an immutable entry of the transaction log describing one
// committed peer-to-peer transfer.
type TransactionRecord struct {
	ID        string    `json:"id" db:"id"`                // ID is a unique identifier for the transfer.
	Seq       int64     `json:"seq" db:"seq"`              // Seq is the 1-based position in the log.
	Timestamp time.Time `json:"timestamp" db:"created_at"` // Timestamp is when the transfer was committed (UTC).
	From      string    `json:"from" db:"from_id"`         // From is the debited account.
	To        string    `json:"to" db:"to_id"`             // To is the credited account.
	Amount    int64     `json:"amount" db:"amount"`        // Amount is the positive value moved.
}
