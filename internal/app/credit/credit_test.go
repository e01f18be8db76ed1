package credit

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/sqlite"
)

var alice = domain.IdentityAccount(domain.Identity{0xA})

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Service Tests ──────────────────────────────────────────────────────────

func TestService_InitialBalance(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())

	bal, err := svc.Balance(context.Background(), alice)
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal != 0 {
		t.Errorf("initial balance = %d, want 0", bal)
	}
}

func TestService_Fund(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	bal, err := svc.Fund(ctx, alice, 50, "faucet")
	if err != nil {
		t.Fatalf("Fund() error: %v", err)
	}
	if bal != 50 {
		t.Errorf("Fund() balance = %d, want 50", bal)
	}

	got, _ := svc.Balance(ctx, alice)
	if got != 50 {
		t.Errorf("balance after fund = %d, want 50", got)
	}
}

func TestService_FundMultiple(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	svc.Fund(ctx, alice, 10, "first")
	svc.Fund(ctx, alice, 20, "second")
	svc.Fund(ctx, alice, 30, "third")

	bal, _ := svc.Balance(ctx, alice)
	if bal != 60 {
		t.Errorf("balance = %d, want 60", bal)
	}
}

func TestService_FundZero(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())

	if _, err := svc.Fund(context.Background(), alice, 0, "zero"); err == nil {
		t.Error("Fund(0) should return error")
	}
}

func TestService_FundRejectsSpecialAccounts(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Fund(ctx, domain.SystemPool, 10, "self"); err == nil {
		t.Error("Fund(system_pool) should return error")
	}
	_, err := svc.Fund(ctx, domain.EscrowAccount("task-1"), 10, "escrow")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Fund(escrow) error = %v, want ErrUnauthorized", err)
	}
}

func TestService_History(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	svc.Fund(ctx, alice, 10, "first")
	svc.Fund(ctx, alice, 20, "second")

	entries, err := svc.History(ctx, alice, 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() = %d entries, want 2", len(entries))
	}
	// Newest first, each carrying the running balance.
	if entries[0].Amount != 20 || entries[0].Balance != 30 {
		t.Errorf("newest entry = %+v, want amount 20 balance 30", entries[0])
	}
	if entries[0].EntryType != domain.EntryCredit || entries[0].Type != domain.TxFund {
		t.Errorf("newest entry kind = %s/%s, want FUND/CREDIT", entries[0].Type, entries[0].EntryType)
	}
	if entries[1].Description != "first" {
		t.Errorf("oldest entry description = %q, want %q", entries[1].Description, "first")
	}
}

func TestService_HistoryEmpty(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())

	entries, err := svc.History(context.Background(), alice, 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("History() = %d entries, want 0", len(entries))
	}
}

func TestService_Totals(t *testing.T) {
	svc := NewService(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	svc.Fund(ctx, alice, 70, "a")
	svc.Fund(ctx, domain.IdentityAccount(domain.Identity{0xB}), 30, "b")

	lt, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	if lt.Minted != 100 || lt.Held != 100 {
		t.Errorf("minted/held = %d/%d, want 100/100", lt.Minted, lt.Held)
	}
	if lt.Debits != lt.Credits {
		t.Errorf("debits %d != credits %d", lt.Debits, lt.Credits)
	}
}

// ─── Conservation Property ──────────────────────────────────────────────────

// Any sequence of funds and transfers, successful or not, leaves the sum of
// held balances equal to the amount minted and debits equal to credits.
func TestLedgerConservation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	accounts := []domain.Account{
		domain.IdentityAccount(domain.Identity{1}),
		domain.IdentityAccount(domain.Identity{2}),
		domain.EscrowAccount("t-1"),
		domain.ReserveAccount("p-1"),
	}

	rapid.Check(t, func(rt *rapid.T) {
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			from := rapid.SampledFrom(accounts).Draw(rt, "from")
			to := rapid.SampledFrom(accounts).Draw(rt, "to")
			amount := rapid.Uint64Range(1, 500).Draw(rt, "amount")

			if rapid.Bool().Draw(rt, "fund") && !to.IsEscrow() {
				if _, err := svc.Fund(ctx, to, amount, "prop"); err != nil {
					rt.Fatalf("Fund() error: %v", err)
				}
				continue
			}
			if from == to {
				continue
			}
			err := db.Atomic(ctx, func(tx domain.Tx) error {
				return tx.Transfer(ctx, domain.Transfer{From: from, To: to, Amount: amount, Type: domain.TxEscrow})
			})
			if err != nil && !errors.Is(err, domain.ErrInsufficientBalance) {
				rt.Fatalf("Transfer() error: %v", err)
			}
		}

		lt, err := db.Totals(ctx)
		if err != nil {
			rt.Fatalf("Totals() error: %v", err)
		}
		if lt.Held != lt.Minted {
			rt.Fatalf("held %d != minted %d", lt.Held, lt.Minted)
		}
		if lt.Debits != lt.Credits {
			rt.Fatalf("debits %d != credits %d", lt.Debits, lt.Credits)
		}
		for _, a := range accounts {
			bal, err := db.AccountBalance(ctx, a)
			if err != nil {
				rt.Fatalf("AccountBalance() error: %v", err)
			}
			if bal < 0 {
				rt.Fatalf("%s balance %d is negative", a, bal)
			}
		}
	})
}
