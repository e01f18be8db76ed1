// Package taskledger opens tasks against escrowed rewards and owns every
// task status transition.
//
// Lifecycle:
//
//	CreateTask ── reward: creator → escrow ──▶ OPEN
//	OPEN ── MarkCompleted (inside settlement) ──▶ COMPLETED
//	OPEN ── FailTask ── escrow → creator ──▶ FAILED
//
// COMPLETED and FAILED are terminal.
package taskledger

import (
	"context"
	"math"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/app/stakepool"
	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/metrics"
)

// Service manages tasks and their escrow.
type Service struct {
	store domain.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a task ledger.
func NewService(store domain.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("taskledger"), now: time.Now}
}

// CreateTask opens a task and moves reward from the creator's account into
// the task escrow in the same transaction. The reward is independent of
// computationUnits.
func (s *Service) CreateTask(ctx context.Context, creator domain.Identity, computationUnits, reward uint64) (*domain.Task, error) {
	if creator.IsZero() {
		return nil, errorsmod.Wrap(domain.ErrInvalidTask, "creator must be set")
	}
	if reward == 0 {
		return nil, errorsmod.Wrap(domain.ErrInvalidTask, "reward must be positive")
	}
	if reward > math.MaxInt64 || computationUnits > math.MaxInt64 {
		return nil, errorsmod.Wrap(domain.ErrInvalidTask, "reward or computation units out of range")
	}

	now := s.now()
	task := domain.Task{
		ID:               uuid.NewString(),
		Creator:          creator,
		ComputationUnits: computationUnits,
		Reward:           reward,
		Status:           domain.TaskOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		pool, err := stakepool.LookupCurrent(ctx, tx)
		if err != nil {
			return err
		}
		task.PoolID = pool.ID

		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}
		return tx.Transfer(ctx, domain.Transfer{
			From:   domain.IdentityAccount(creator),
			To:     task.EscrowAccount(),
			Amount: reward,
			Type:   domain.TxEscrow,
			TaskID: task.ID,
			Memo:   "task reward escrow",
		})
	})
	if err != nil {
		s.log.Warn("Task rejected",
			zap.Stringer("creator", creator),
			zap.Uint64("reward", reward),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.TasksCreated.Inc()
	metrics.EscrowLocked.Add(float64(reward))
	s.log.Info("Task created",
		zap.String("task", task.ID),
		zap.Stringer("creator", creator),
		zap.Uint64("units", computationUnits),
		zap.Uint64("reward", reward),
	)
	return &task, nil
}

// MarkCompleted performs Open → Completed inside tx and records the
// completion. The caller is responsible for settling funds in the same tx.
func (s *Service) MarkCompleted(ctx context.Context, tx domain.Tx, task *domain.Task, c domain.Completion) error {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = s.now()
	}
	if err := task.Complete(c); err != nil {
		return err
	}
	return tx.UpdateTask(ctx, *task)
}

// FailTask moves an Open task to Failed and refunds the escrow to its
// creator. Only the creator or the pool authority may fail a task.
func (s *Service) FailTask(ctx context.Context, taskID string, caller domain.Identity) (*domain.Task, error) {
	var task *domain.Task
	var refunded int64

	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		task, err = Lookup(ctx, tx, taskID)
		if err != nil {
			return err
		}
		pool, err := stakepool.Lookup(ctx, tx, task.PoolID)
		if err != nil {
			return err
		}
		if caller != task.Creator && caller != pool.Authority {
			return errorsmod.Wrapf(domain.ErrUnauthorized, "%s may not fail task %s", caller.Short(), task.ID)
		}
		if err := task.Transition(domain.TaskFailed, s.now()); err != nil {
			return err
		}

		refunded, err = tx.Balance(ctx, task.EscrowAccount())
		if err != nil {
			return err
		}
		if refunded > 0 {
			err = tx.Transfer(ctx, domain.Transfer{
				From:   task.EscrowAccount(),
				To:     domain.IdentityAccount(task.Creator),
				Amount: uint64(refunded),
				Type:   domain.TxRefund,
				TaskID: task.ID,
				Memo:   "task failed",
			})
			if err != nil {
				return err
			}
		}
		return tx.UpdateTask(ctx, *task)
	})
	if err != nil {
		return nil, err
	}

	metrics.TasksFailed.Inc()
	metrics.EscrowLocked.Sub(float64(refunded))
	s.log.Info("Task failed",
		zap.String("task", task.ID),
		zap.Stringer("by", caller),
		zap.Int64("refunded", refunded),
	)
	return task, nil
}

// Get returns a task by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		task, err = Lookup(ctx, tx, id)
		return err
	})
	return task, err
}

// List returns tasks matching the filter, newest first.
func (s *Service) List(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		var err error
		tasks, err = tx.ListTasks(ctx, f)
		return err
	})
	return tasks, err
}

// Lookup loads a task inside tx, mapping absence to ErrTaskNotFound.
func Lookup(ctx context.Context, tx domain.TaskRepository, id string) (*domain.Task, error) {
	task, err := tx.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errorsmod.Wrapf(domain.ErrTaskNotFound, "task %s", id)
	}
	return task, nil
}
