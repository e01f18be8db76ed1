package domain

import (
	"strings"
	"time"
)

// ─── Credit Ledger ──────────────────────────────────────────────────────────
// Double-entry: every transfer writes one DEBIT and one CREDIT row of the
// same amount. SUM(debits) == SUM(credits) is an invariant.

// Account names a ledger balance.
type Account string

// SystemPool is the mint source for funding. It is the only account that
// may go negative; its balance is minus the total ever minted.
const SystemPool Account = "system_pool"

// IdentityAccount is the spendable balance of an identity.
func IdentityAccount(id Identity) Account { return Account("acct:" + id.String()) }

// EscrowAccount holds a task's reward until completion or failure.
func EscrowAccount(taskID string) Account { return Account("escrow:" + taskID) }

// ReserveAccount funds the leader bonuses of a pool.
func ReserveAccount(poolID string) Account { return Account("reserve:" + poolID) }

// IsEscrow reports whether a is a task escrow account.
func (a Account) IsEscrow() bool { return strings.HasPrefix(string(a), "escrow:") }

// TxType classifies why a transfer happened.
type TxType string

const (
	TxFund    TxType = "FUND"
	TxEscrow  TxType = "ESCROW"
	TxBonus   TxType = "BONUS"
	TxPayout  TxType = "PAYOUT"
	TxRefund  TxType = "REFUND"
	TxReserve TxType = "RESERVE"
)

// EntryType is the side of a double-entry row.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// LedgerEntry is one side of a transfer.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        TxType    `json:"type"`
	EntryType   EntryType `json:"entry_type"`
	Account     Account   `json:"account"`
	Amount      uint64    `json:"amount"`
	TaskID      string    `json:"task_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Balance     int64     `json:"balance"`
}

// Transfer describes one movement of funds.
type Transfer struct {
	From   Account
	To     Account
	Amount uint64
	Type   TxType
	TaskID string
	Memo   string
}
