// Package referral keeps one accrual record per referrer.
package referral

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/metrics"
)

// Service registers referrers.
type Service struct {
	store domain.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a referral registry.
func NewService(store domain.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("referral"), now: time.Now}
}

// Register creates the referrer's record with zero accruals.
func (s *Service) Register(ctx context.Context, referrer domain.Identity) (*domain.ReferralInfo, error) {
	if referrer.IsZero() {
		return nil, errorsmod.Wrap(domain.ErrInvalidReferral, "referrer must be set")
	}

	info := domain.ReferralInfo{
		ID:       uuid.NewString(),
		Referrer: referrer,
		// Accrual happens outside this service.
		TotalRewards:    0,
		ActiveReferrals: 0,
		CreatedAt:       s.now(),
	}

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		existing, err := tx.GetReferral(ctx, referrer)
		if err != nil {
			return err
		}
		if existing != nil {
			return errorsmod.Wrapf(domain.ErrInvalidReferral, "referrer %s already registered", referrer.Short())
		}
		return tx.InsertReferral(ctx, info)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReferralsRegistered.Inc()
	s.log.Info("Referral registered", zap.String("id", info.ID), zap.Stringer("referrer", referrer))
	return &info, nil
}

// Get returns the record for a referrer.
func (s *Service) Get(ctx context.Context, referrer domain.Identity) (*domain.ReferralInfo, error) {
	var info *domain.ReferralInfo
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		info, err = tx.GetReferral(ctx, referrer)
		if err != nil {
			return err
		}
		if info == nil {
			return errorsmod.Wrapf(domain.ErrInvalidReferral, "referrer %s not registered", referrer.Short())
		}
		return nil
	})
	return info, err
}
