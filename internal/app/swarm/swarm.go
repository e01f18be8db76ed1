// Package swarm forms worker swarms. A swarm's leader, ordered member list
// and declared power are fixed when it is created.
package swarm

import (
	"context"
	"math"
	"slices"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/metrics"
)

// Service is the swarm registry.
type Service struct {
	store domain.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a swarm registry.
func NewService(store domain.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("swarm"), now: time.Now}
}

// CreateSwarm registers a new swarm. totalPower is taken as declared.
func (s *Service) CreateSwarm(ctx context.Context, leader domain.Identity, members []domain.Identity, totalPower uint64) (*domain.Swarm, error) {
	if err := validate(leader, members, totalPower); err != nil {
		return nil, err
	}

	sw := domain.Swarm{
		ID:               uuid.NewString(),
		Leader:           leader,
		Members:          slices.Clone(members),
		TotalPower:       totalPower,
		TasksCompleted:   0,
		PerformanceScore: domain.InitialPerformanceScore,
		CreatedAt:        s.now(),
	}

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		return tx.InsertSwarm(ctx, sw)
	})
	if err != nil {
		return nil, err
	}

	metrics.SwarmsCreated.Inc()
	s.log.Info("Swarm formed",
		zap.String("id", sw.ID),
		zap.Stringer("leader", leader),
		zap.Int("members", len(members)),
		zap.Uint64("power", totalPower),
	)
	return &sw, nil
}

func validate(leader domain.Identity, members []domain.Identity, totalPower uint64) error {
	if leader.IsZero() {
		return errorsmod.Wrap(domain.ErrInvalidSwarm, "leader must be set")
	}
	if len(members) == 0 {
		return errorsmod.Wrap(domain.ErrInvalidSwarm, "swarm needs at least one member")
	}
	for i, m := range members {
		if m.IsZero() {
			return errorsmod.Wrapf(domain.ErrInvalidSwarm, "member %d is unset", i)
		}
	}
	if dup, ok := domain.DuplicateIdentity(members); ok {
		return errorsmod.Wrapf(domain.ErrInvalidSwarm, "member %s listed twice", dup.Short())
	}
	if totalPower > math.MaxInt64 {
		return errorsmod.Wrapf(domain.ErrInvalidSwarm, "total power %d out of range", totalPower)
	}
	return nil
}

// Get returns a swarm by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Swarm, error) {
	var sw *domain.Swarm
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		sw, err = tx.GetSwarm(ctx, id)
		if err != nil {
			return err
		}
		if sw == nil {
			return errorsmod.Wrapf(domain.ErrSwarmNotFound, "swarm %s", id)
		}
		return nil
	})
	return sw, err
}

// List returns the most recently formed swarms.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Swarm, error) {
	var swarms []domain.Swarm
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		swarms, err = tx.ListSwarms(ctx, limit)
		return err
	})
	return swarms, err
}
