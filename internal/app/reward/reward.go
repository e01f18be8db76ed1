// Package reward settles completed tasks: it verifies the submission,
// computes the leader bonus and pays the worker, all in one transaction.
package reward

import (
	"context"
	"errors"
	"math"
	"math/bits"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/app/stakepool"
	"github.com/tutu-network/swarmpay/internal/app/taskledger"
	"github.com/tutu-network/swarmpay/internal/app/verify"
	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/metrics"
)

// Payout computes the leader bonus and the total paid for a reward:
// bonus = floor(reward × pct / 100), total = reward + bonus.
// The product is computed in 128 bits so it cannot wrap.
func Payout(reward, leaderBonusPct uint64) (bonus, total uint64, err error) {
	if leaderBonusPct > domain.MaxBonusPct {
		return 0, 0, errorsmod.Wrapf(domain.ErrInvalidPool, "leader bonus %d%% exceeds %d%%", leaderBonusPct, domain.MaxBonusPct)
	}
	hi, lo := bits.Mul64(reward, leaderBonusPct)
	bonus, _ = bits.Div64(hi, lo, 100) // hi < 100 since pct <= 100
	total, carry := bits.Add64(reward, bonus, 0)
	if carry != 0 {
		return 0, 0, errorsmod.Wrapf(domain.ErrInsufficientReward, "payout of %d + %d overflows", reward, bonus)
	}
	return bonus, total, nil
}

// Settlement is the outcome of a successful completion.
type Settlement struct {
	Task   *domain.Task    `json:"task"`
	Worker domain.Identity `json:"worker"`
	Reward uint64          `json:"reward"`
	Bonus  uint64          `json:"bonus"`
	Total  uint64          `json:"total"`
}

// Service is the reward distributor.
type Service struct {
	store    domain.Store
	tasks    *taskledger.Service
	verifier domain.Verifier
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a reward distributor.
func NewService(store domain.Store, tasks *taskledger.Service, verifier domain.Verifier, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		tasks:    tasks,
		verifier: verifier,
		log:      log.Named("reward"),
		now:      time.Now,
	}
}

// Complete verifies a worker's submission for an Open task and pays
// reward plus leader bonus to the worker. Either everything happens or
// nothing does: on any error the task stays as it was and no funds move.
//
// Checks run in order: task exists, task is Open, worker is set, result
// hash is accepted, proof attests this task's hash, proof is accepted.
func (s *Service) Complete(ctx context.Context, taskID string, worker domain.Identity, resultHash domain.Digest, proof domain.SwarmProof) (*Settlement, error) {
	start := time.Now()

	st, err := s.settle(ctx, taskID, worker, resultHash, proof)
	if err != nil {
		metrics.SettlementRejections.WithLabelValues(Reason(err)).Inc()
		s.log.Warn("Completion rejected",
			zap.String("task", taskID),
			zap.Stringer("worker", worker),
			zap.String("reason", Reason(err)),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.SettlementLatency.Observe(time.Since(start).Seconds())
	metrics.TasksCompleted.Inc()
	metrics.RewardsPaid.Add(float64(st.Total))
	metrics.BonusPaid.Add(float64(st.Bonus))
	metrics.EscrowLocked.Sub(float64(st.Reward))
	s.log.Info("Task completed",
		zap.String("task", taskID),
		zap.Stringer("worker", worker),
		zap.Uint64("reward", st.Reward),
		zap.Uint64("bonus", st.Bonus),
		zap.Uint64("total", st.Total),
	)
	return st, nil
}

func (s *Service) settle(ctx context.Context, taskID string, worker domain.Identity, resultHash domain.Digest, proof domain.SwarmProof) (*Settlement, error) {
	var st *Settlement
	err := s.store.Atomic(ctx, func(tx domain.Tx) error {
		task, err := taskledger.Lookup(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskOpen {
			return errorsmod.Wrapf(domain.ErrInvalidTaskStatus, "task %s is %s", task.ID, task.Status)
		}
		if worker.IsZero() {
			return errorsmod.Wrap(domain.ErrUnauthorized, "worker must be set")
		}
		if !s.verifier.VerifyComputationResult(resultHash) {
			return errorsmod.Wrapf(domain.ErrInvalidComputationResult, "result %s", resultHash)
		}
		// The proof must attest this task, not some other one.
		if want := verify.TaskHash(task); proof.TaskHash != want {
			return errorsmod.Wrapf(domain.ErrInvalidSwarmProof, "proof signs %s, task %s hashes to %s", proof.TaskHash, task.ID, want)
		}
		if !s.verifier.VerifySwarmProof(proof) {
			return errorsmod.Wrapf(domain.ErrInvalidSwarmProof, "proof by leader %s", proof.Leader.Short())
		}

		pool, err := stakepool.Lookup(ctx, tx, task.PoolID)
		if err != nil {
			return err
		}
		st, err = s.pay(ctx, tx, pool, task, worker)
		if err != nil {
			return err
		}

		return s.tasks.MarkCompleted(ctx, tx, task, domain.Completion{
			Worker:      worker,
			Proof:       proof,
			ResultHash:  resultHash,
			CompletedAt: s.now(),
		})
	})
	return st, err
}

// pay tops the escrow up with the bonus from the pool reserve, then moves
// the full payout from escrow to the worker.
func (s *Service) pay(ctx context.Context, tx domain.Tx, pool *domain.Pool, task *domain.Task, worker domain.Identity) (*Settlement, error) {
	bonus, total, err := Payout(task.Reward, pool.LeaderBonus)
	if err != nil {
		return nil, err
	}
	if total > math.MaxInt64 {
		return nil, errorsmod.Wrapf(domain.ErrInsufficientReward, "payout %d out of range", total)
	}

	if bonus > 0 {
		err := tx.Transfer(ctx, domain.Transfer{
			From:   pool.ReserveAccount(),
			To:     task.EscrowAccount(),
			Amount: bonus,
			Type:   domain.TxBonus,
			TaskID: task.ID,
			Memo:   "leader bonus",
		})
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, errorsmod.Wrapf(domain.ErrInsufficientReward, "pool reserve cannot cover bonus %d", bonus)
		}
		if err != nil {
			return nil, err
		}
	}

	escrow, err := tx.Balance(ctx, task.EscrowAccount())
	if err != nil {
		return nil, err
	}
	if escrow < int64(total) {
		return nil, errorsmod.Wrapf(domain.ErrInsufficientReward, "escrow holds %d, payout is %d", escrow, total)
	}

	err = tx.Transfer(ctx, domain.Transfer{
		From:   task.EscrowAccount(),
		To:     domain.IdentityAccount(worker),
		Amount: total,
		Type:   domain.TxPayout,
		TaskID: task.ID,
		Memo:   "task reward",
	})
	if err != nil {
		return nil, err
	}

	return &Settlement{
		Task:   task,
		Worker: worker,
		Reward: task.Reward,
		Bonus:  bonus,
		Total:  total,
	}, nil
}

// Reason maps a settlement error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "invalid_task_status"
	case errors.Is(err, domain.ErrInvalidComputationResult):
		return "invalid_computation_result"
	case errors.Is(err, domain.ErrInvalidSwarmProof):
		return "invalid_swarm_proof"
	case errors.Is(err, domain.ErrInsufficientReward):
		return "insufficient_reward"
	case errors.Is(err, domain.ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
