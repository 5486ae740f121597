package models

// Account represents a ledger account keyed by its UPI identifier.
type Account struct {
	ID      string `json:"id" db:"id"`           // Unique account identifier
	Balance int64  `json:"balance" db:"balance"` // Current balance in whole units, never negative
	Seq     int64  `json:"-" db:"seq"`           // 1-based insertion position
}

// LedgerSnapshot is the full persisted state of the ledger: every account and the
// complete transaction log, both ordered by Seq.
type LedgerSnapshot struct {
	Accounts     []Account           `json:"accounts"`
	Transactions []TransactionRecord `json:"transactions"`
}
