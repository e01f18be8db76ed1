// Package domain holds the pure marketplace types: tasks, swarms, the stake
// pool, referrals, ledger entries, coded errors and the service boundaries.
// A task flows: create (escrow) → complete (verify, settle) | fail (refund).
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
)

// TaskStatus tracks task lifecycle. The set is closed: every switch over a
// TaskStatus must handle all four values.
type TaskStatus uint8

const (
	TaskOpen TaskStatus = iota
	TaskInProgress
	TaskCompleted
	TaskFailed
)

// AllTaskStatuses lists every status in declaration order.
var AllTaskStatuses = []TaskStatus{TaskOpen, TaskInProgress, TaskCompleted, TaskFailed}

func (s TaskStatus) String() string {
	switch s {
	case TaskOpen:
		return "OPEN"
	case TaskInProgress:
		return "IN_PROGRESS"
	case TaskCompleted:
		return "COMPLETED"
	case TaskFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("TaskStatus(%d)", uint8(s))
	}
}

// ParseTaskStatus is the inverse of String.
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range AllTaskStatuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown task status %q", s)
}

func (s TaskStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TaskStatus) UnmarshalText(b []byte) error {
	v, err := ParseTaskStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsTerminal returns true if no further transition is possible.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed:
		return true
	case TaskOpen, TaskInProgress:
		return false
	default:
		return false
	}
}

// CanTransition reports whether from → to is a legal edge.
// Only Open has outgoing edges: Open → {InProgress, Completed, Failed}.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskOpen:
		return to == TaskInProgress || to == TaskCompleted || to == TaskFailed
	case TaskInProgress, TaskCompleted, TaskFailed:
		return false
	default:
		return false
	}
}

// Completion records who completed a task and with what evidence.
// It is written once, on Open → Completed, and never cleared.
type Completion struct {
	Worker      Identity   `json:"completed_by"`
	Proof       SwarmProof `json:"swarm_proof"`
	ResultHash  Digest     `json:"result_hash"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Task is a unit of escrowed compute work.
type Task struct {
	ID               string      `json:"id"`
	PoolID           string      `json:"pool_id"`
	Creator          Identity    `json:"creator"`
	ComputationUnits uint64      `json:"computation_units"`
	Reward           uint64      `json:"reward"`
	Status           TaskStatus  `json:"status"`
	Completion       *Completion `json:"completion,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// EscrowAccount is the ledger account holding this task's reward.
func (t *Task) EscrowAccount() Account { return EscrowAccount(t.ID) }

// Transition moves the task to a new status, rejecting illegal edges.
// Completed must go through Complete so the completion record is written.
func (t *Task) Transition(to TaskStatus, now time.Time) error {
	if to == TaskCompleted {
		return errorsmod.Wrap(ErrInvalidTaskStatus, "use Complete to finish a task")
	}
	if !CanTransition(t.Status, to) {
		return errorsmod.Wrapf(ErrInvalidTaskStatus, "task %s: %s → %s", t.ID, t.Status, to)
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// Complete performs Open → Completed and records the completion exactly once.
func (t *Task) Complete(c Completion) error {
	if !CanTransition(t.Status, TaskCompleted) {
		return errorsmod.Wrapf(ErrInvalidTaskStatus, "task %s is %s", t.ID, t.Status)
	}
	if t.Completion != nil {
		return errorsmod.Wrapf(ErrInvalidTaskStatus, "task %s already has a completion record", t.ID)
	}
	cp := c
	cp.Proof = c.Proof.Clone()
	t.Completion = &cp
	t.Status = TaskCompleted
	t.UpdatedAt = c.CompletedAt
	return nil
}

// IsTerminal returns true if the task has reached a final state.
func (t *Task) IsTerminal() bool { return t.Status.IsTerminal() }

// TaskFilter narrows task listings. A nil Status matches every status.
type TaskFilter struct {
	Status  *TaskStatus
	Creator *Identity
	Limit   int
}

// MarshalCompletion encodes a completion for storage.
func MarshalCompletion(c *Completion) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// UnmarshalCompletion decodes a stored completion; empty input yields nil.
func UnmarshalCompletion(b []byte) (*Completion, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var c Completion
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	return &c, nil
}
