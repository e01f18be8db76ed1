// Package credit exposes the double-entry credit ledger to callers outside
// a task: minting funds, balances and account history.
// Every credit operation creates matched DEBIT/CREDIT entries.
// SUM(debits) == SUM(credits) is an invariant.
package credit

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/sqlite"
)

// MaxFaucetAmount caps a single faucet request.
const MaxFaucetAmount uint64 = 1_000_000

// DefaultHistoryLimit is used when History is called with limit <= 0.
const DefaultHistoryLimit = 50

// Service manages account funding and reporting.
type Service struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewService creates a credit service.
func NewService(db *sqlite.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("credit")}
}

// Fund mints amount into an account.
// Creates matched DEBIT (system_pool) and CREDIT (account) entries.
func (s *Service) Fund(ctx context.Context, account domain.Account, amount uint64, reason string) (int64, error) {
	if amount == 0 {
		return 0, errorsmod.Wrap(domain.ErrBadRequest, "fund amount must be positive")
	}
	if account == domain.SystemPool {
		return 0, errorsmod.Wrapf(domain.ErrBadRequest, "cannot fund %s", domain.SystemPool)
	}
	if account.IsEscrow() {
		return 0, errorsmod.Wrap(domain.ErrUnauthorized, "escrow accounts are funded by task creation only")
	}

	var bal int64
	err := s.db.Atomic(ctx, func(tx domain.Tx) error {
		err := tx.Transfer(ctx, domain.Transfer{
			From:   domain.SystemPool,
			To:     account,
			Amount: amount,
			Type:   domain.TxFund,
			Memo:   reason,
		})
		if err != nil {
			return err
		}
		bal, err = tx.Balance(ctx, account)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Account funded",
		zap.String("account", string(account)),
		zap.Uint64("amount", amount),
		zap.Int64("balance", bal),
	)
	return bal, nil
}

// Balance returns an account's current balance.
func (s *Service) Balance(ctx context.Context, account domain.Account) (int64, error) {
	return s.db.AccountBalance(ctx, account)
}

// History returns recent ledger entries for an account, newest first.
func (s *Service) History(ctx context.Context, account domain.Account, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.db.LedgerEntries(ctx, account, limit)
}

// Totals returns ledger-wide sums for conservation checks.
func (s *Service) Totals(ctx context.Context) (sqlite.LedgerTotals, error) {
	return s.db.Totals(ctx)
}
