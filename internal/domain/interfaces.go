package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Verifier certifies computation results and swarm proofs. Implementations
// must be pure: the same input always yields the same answer and no state
// is touched.
type Verifier interface {
	// VerifyComputationResult reports whether hash is a valid digest of a
	// correct computation.
	VerifyComputationResult(hash Digest) bool

	// VerifySwarmProof reports whether the proof's signatures form a quorum
	// of the claimed swarm authorizing TaskHash.
	VerifySwarmProof(proof SwarmProof) bool
}

// Ledger is the value-transfer capability.
type Ledger interface {
	// Transfer moves Amount from From to To atomically. It returns
	// ErrInsufficientBalance when From cannot cover the amount.
	Transfer(ctx context.Context, t Transfer) error

	// Balance returns the current balance of an account.
	Balance(ctx context.Context, a Account) (int64, error)
}

// TaskRepository persists tasks.
type TaskRepository interface {
	InsertTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, t Task) error
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)
}

// SwarmRepository persists swarms.
type SwarmRepository interface {
	InsertSwarm(ctx context.Context, s Swarm) error
	GetSwarm(ctx context.Context, id string) (*Swarm, error)
	ListSwarms(ctx context.Context, limit int) ([]Swarm, error)
}

// PoolRepository persists the stake pool.
type PoolRepository interface {
	InsertPool(ctx context.Context, p Pool) error
	GetPool(ctx context.Context, id string) (*Pool, error)
	CurrentPool(ctx context.Context) (*Pool, error)
}

// ReferralRepository persists referral records.
type ReferralRepository interface {
	InsertReferral(ctx context.Context, r ReferralInfo) error
	GetReferral(ctx context.Context, referrer Identity) (*ReferralInfo, error)
}

// Tx is the view of the store inside one atomic operation.
// Get* methods return (nil, nil) when the record does not exist.
type Tx interface {
	Ledger
	TaskRepository
	SwarmRepository
	PoolRepository
	ReferralRepository
}

// Store runs operations atomically. If fn returns an error, nothing fn
// wrote is visible to any other operation.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
