// Package stakepool manages the singleton stake pool: its bonus
// configuration and the reserve that funds leader bonuses.
package stakepool

import (
	"context"
	"math"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// Service manages the stake pool.
type Service struct {
	store domain.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a stake pool service.
func NewService(store domain.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("stakepool"), now: time.Now}
}

// Initialize creates the pool. A store holds at most one pool.
func (s *Service) Initialize(ctx context.Context, authority domain.Identity, minStake, leaderBonus, referralBonus uint64) (*domain.Pool, error) {
	if authority.IsZero() {
		return nil, errorsmod.Wrap(domain.ErrInvalidPool, "authority must be set")
	}
	if leaderBonus > domain.MaxBonusPct {
		return nil, errorsmod.Wrapf(domain.ErrInvalidPool, "leader bonus %d%% exceeds %d%%", leaderBonus, domain.MaxBonusPct)
	}
	if referralBonus > domain.MaxBonusPct {
		return nil, errorsmod.Wrapf(domain.ErrInvalidPool, "referral bonus %d%% exceeds %d%%", referralBonus, domain.MaxBonusPct)
	}
	if minStake > math.MaxInt64 {
		return nil, errorsmod.Wrapf(domain.ErrInvalidPool, "min stake %d out of range", minStake)
	}

	pool := domain.Pool{
		ID:            uuid.NewString(),
		Authority:     authority,
		TotalStaked:   0,
		RewardRate:    domain.BaseRewardRate,
		MinStake:      minStake,
		LeaderBonus:   leaderBonus,
		ReferralBonus: referralBonus,
		CreatedAt:     s.now(),
	}

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		existing, err := tx.CurrentPool(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return errorsmod.Wrapf(domain.ErrPoolExists, "pool %s", existing.ID)
		}
		return tx.InsertPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Pool initialized",
		zap.String("pool", pool.ID),
		zap.Stringer("authority", pool.Authority),
		zap.Uint64("leader_bonus", leaderBonus),
		zap.Uint64("referral_bonus", referralBonus),
	)
	return &pool, nil
}

// Get returns a pool by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Pool, error) {
	var pool *domain.Pool
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		pool, err = Lookup(ctx, tx, id)
		return err
	})
	return pool, err
}

// Current returns the singleton pool.
func (s *Service) Current(ctx context.Context) (*domain.Pool, error) {
	var pool *domain.Pool
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		pool, err = LookupCurrent(ctx, tx)
		return err
	})
	return pool, err
}

// FundReserve moves amount from an account into the pool's leader-bonus
// reserve and returns the reserve balance afterwards.
func (s *Service) FundReserve(ctx context.Context, poolID string, from domain.Account, amount uint64) (int64, error) {
	if amount == 0 {
		return 0, errorsmod.Wrap(domain.ErrInvalidPool, "reserve amount must be positive")
	}

	var reserve int64
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		pool, err := Lookup(ctx, tx, poolID)
		if err != nil {
			return err
		}
		err = tx.Transfer(ctx, domain.Transfer{
			From:   from,
			To:     pool.ReserveAccount(),
			Amount: amount,
			Type:   domain.TxReserve,
			Memo:   "leader bonus reserve",
		})
		if err != nil {
			return err
		}
		reserve, err = tx.Balance(ctx, pool.ReserveAccount())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Reserve funded",
		zap.String("pool", poolID),
		zap.String("from", string(from)),
		zap.Uint64("amount", amount),
		zap.Int64("reserve", reserve),
	)
	return reserve, nil
}

// Lookup loads a pool inside tx, mapping absence to ErrPoolNotFound.
func Lookup(ctx context.Context, tx domain.PoolRepository, id string) (*domain.Pool, error) {
	pool, err := tx.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errorsmod.Wrapf(domain.ErrPoolNotFound, "pool %s", id)
	}
	return pool, nil
}

// LookupCurrent loads the singleton pool inside tx.
func LookupCurrent(ctx context.Context, tx domain.PoolRepository) (*domain.Pool, error) {
	pool, err := tx.CurrentPool(ctx)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errorsmod.Wrap(domain.ErrPoolNotFound, "stake pool is not initialized")
	}
	return pool, nil
}
