package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// ─── Credit Ledger ──────────────────────────────────────────────────────────

// Balance returns the current balance for an account (0 if never used).
func (t *txView) Balance(ctx context.Context, a domain.Account) (int64, error) {
	return balance(ctx, t.tx, a)
}

// Transfer moves funds between two accounts and writes the matched
// DEBIT/CREDIT ledger entries.
func (t *txView) Transfer(ctx context.Context, tr domain.Transfer) error {
	if tr.Amount == 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	if tr.Amount > math.MaxInt64 {
		return fmt.Errorf("transfer amount %d exceeds ledger range", tr.Amount)
	}
	if tr.From == tr.To {
		return fmt.Errorf("transfer from %s to itself", tr.From)
	}
	amount := int64(tr.Amount)

	fromBal, err := t.Balance(ctx, tr.From)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", tr.From, err)
	}
	if tr.From != domain.SystemPool && fromBal < amount {
		return errorsmod.Wrapf(domain.ErrInsufficientBalance,
			"%s: have %d, need %d", tr.From, fromBal, amount)
	}
	if tr.From == domain.SystemPool && fromBal < math.MinInt64+amount {
		return fmt.Errorf("mint of %d would overflow %s", amount, domain.SystemPool)
	}

	toBal, err := t.Balance(ctx, tr.To)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", tr.To, err)
	}
	if toBal > math.MaxInt64-amount {
		return fmt.Errorf("credit of %d would overflow %s", amount, tr.To)
	}

	now := t.now()
	entries := []domain.LedgerEntry{
		{
			Timestamp: now, Type: tr.Type, EntryType: domain.EntryDebit,
			Account: tr.From, Amount: tr.Amount, TaskID: tr.TaskID,
			Description: tr.Memo, Balance: fromBal - amount,
		},
		{
			Timestamp: now, Type: tr.Type, EntryType: domain.EntryCredit,
			Account: tr.To, Amount: tr.Amount, TaskID: tr.TaskID,
			Description: tr.Memo, Balance: toBal + amount,
		},
	}
	for _, e := range entries {
		if err := setBalance(ctx, t.tx, e.Account, e.Balance); err != nil {
			return fmt.Errorf("set %s balance: %w", e.Account, err)
		}
		if err := insertLedgerEntry(ctx, t.tx, e); err != nil {
			return fmt.Errorf("%s %s: %w", e.EntryType, e.Account, err)
		}
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balance(ctx context.Context, q queryer, a domain.Account) (int64, error) {
	var bal int64
	err := q.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE account = ?`, string(a),
	).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

func setBalance(ctx context.Context, q queryer, a domain.Account, bal int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (account, balance) VALUES (?, ?)
		 ON CONFLICT(account) DO UPDATE SET balance=excluded.balance`,
		string(a), bal,
	)
	return err
}

func insertLedgerEntry(ctx context.Context, q queryer, e domain.LedgerEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO credit_ledger (timestamp, type, entry_type, account, amount, task_id, description, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		toUnix(e.Timestamp), string(e.Type), string(e.EntryType),
		string(e.Account), e.Amount, nullStr(e.TaskID), nullStr(e.Description), e.Balance,
	)
	return err
}

// ─── Ledger Reports (read-only, outside transactions) ───────────────────────

// AccountBalance returns the current balance of one account.
func (d *DB) AccountBalance(ctx context.Context, a domain.Account) (int64, error) {
	return balance(ctx, d.db, a)
}

// LedgerEntries returns recent ledger entries for an account, newest first.
func (d *DB) LedgerEntries(ctx context.Context, a domain.Account, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, timestamp, type, entry_type, account, amount, task_id, description, balance
		 FROM credit_ledger WHERE account = ? ORDER BY id DESC LIMIT ?`,
		string(a), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts int64
		var taskID, desc sql.NullString
		err := rows.Scan(&e.ID, &ts, &e.Type, &e.EntryType, &e.Account,
			&e.Amount, &taskID, &desc, &e.Balance)
		if err != nil {
			return nil, err
		}
		e.Timestamp = fromUnix(ts)
		e.TaskID = taskID.String
		e.Description = desc.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerTotals summarizes the ledger for conservation checks.
type LedgerTotals struct {
	Minted   int64 // minus the system_pool balance
	Held     int64 // sum of every other account
	Debits   int64
	Credits  int64
	Accounts int
}

// Totals computes ledger-wide sums. Held == Minted and Debits == Credits
// hold whenever no transaction is in flight.
func (d *DB) Totals(ctx context.Context) (LedgerTotals, error) {
	var lt LedgerTotals
	var sys, held sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT
			(SELECT balance FROM accounts WHERE account = ?),
			(SELECT SUM(balance) FROM accounts WHERE account != ?),
			(SELECT COUNT(*) FROM accounts)`,
		string(domain.SystemPool), string(domain.SystemPool),
	).Scan(&sys, &held, &lt.Accounts)
	if err != nil {
		return lt, fmt.Errorf("sum balances: %w", err)
	}
	lt.Minted = -sys.Int64
	lt.Held = held.Int64

	var debits, credits sql.NullInt64
	err = d.db.QueryRowContext(ctx,
		`SELECT
			SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END),
			SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END)
		 FROM credit_ledger`,
		string(domain.EntryDebit), string(domain.EntryCredit),
	).Scan(&debits, &credits)
	if err != nil {
		return lt, fmt.Errorf("sum entries: %w", err)
	}
	lt.Debits = debits.Int64
	lt.Credits = credits.Int64
	return lt, nil
}

// UnderfundedEscrows returns Open tasks whose escrow holds less than the
// task reward.
func (d *DB) UnderfundedEscrows(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT t.id FROM tasks t
		 LEFT JOIN accounts a ON a.account = 'escrow:' || t.id
		 WHERE t.status = ? AND COALESCE(a.balance, 0) < t.reward`,
		domain.TaskOpen.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EscrowLocked returns the total held across all escrow accounts.
func (d *DB) EscrowLocked(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT SUM(balance) FROM accounts WHERE account LIKE 'escrow:%'`,
	).Scan(&total)
	return total.Int64, err
}
