package domain

import (
	"slices"
	"time"
)

// InitialPerformanceScore is the score every new swarm starts with.
const InitialPerformanceScore = 100

// Swarm is a group of workers with a leader and declared compute power.
// Membership is fixed at creation.
type Swarm struct {
	ID               string     `json:"id"`
	Leader           Identity   `json:"leader"`
	Members          []Identity `json:"members"`
	TotalPower       uint64     `json:"total_power"`
	TasksCompleted   uint64     `json:"tasks_completed"`
	PerformanceScore uint64     `json:"performance_score"`
	CreatedAt        time.Time  `json:"created_at"`
}

// HasMember reports whether id is listed as a member.
func (s *Swarm) HasMember(id Identity) bool {
	return slices.Contains(s.Members, id)
}

// SwarmProof is a signed attestation that a swarm completed a task.
// Signatures[i] is expected to be Members[i]'s signature over TaskHash.
type SwarmProof struct {
	Leader     Identity    `json:"leader"`
	Members    []Identity  `json:"members"`
	TotalPower uint64      `json:"total_power"`
	TaskHash   Digest      `json:"task_hash"`
	Signatures []Signature `json:"signatures"`
}

// Clone returns a deep copy, so a stored proof cannot alias caller slices.
func (p SwarmProof) Clone() SwarmProof {
	p.Members = slices.Clone(p.Members)
	p.Signatures = slices.Clone(p.Signatures)
	return p
}

// DuplicateIdentity returns the first identity that appears twice in ids.
func DuplicateIdentity(ids []Identity) (Identity, bool) {
	seen := make(map[Identity]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return Identity{}, false
}
