// Package verify implements the proof verifiers used at task completion.
//
// Both checks are pure predicates: they read only their argument and return
// the same answer for the same input, so they may run any number of times
// before the settlement transaction observes the result.
package verify

import (
	"crypto/ed25519"
	"encoding/binary"
	"slices"

	"golang.org/x/crypto/blake2b"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// DefaultQuorumPct is the share of swarm members that must sign a task hash.
const DefaultQuorumPct = 67

// taskHashDomain separates task hashes from any other BLAKE2b use.
const taskHashDomain = "swarmpay/task/v1"

// TaskHash is the digest swarm members sign to attest a task. It commits to
// the task's immutable fields only, so it never changes over the task's life.
func TaskHash(t *domain.Task) domain.Digest {
	h, _ := blake2b.New256(nil) // nil key never errors
	h.Write([]byte(taskHashDomain))
	writeField(h, []byte(t.ID))
	writeField(h, []byte(t.PoolID))
	h.Write(t.Creator[:])

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], t.ComputationUnits)
	binary.BigEndian.PutUint64(buf[8:], t.Reward)
	h.Write(buf[:])

	var d domain.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// writeField writes a length-prefixed field so adjacent fields cannot alias.
func writeField(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	h.Write(n[:])
	h.Write(b)
}

// ─── Quorum Verifier ────────────────────────────────────────────────────────

// Quorum checks Ed25519 member signatures over the proof's task hash.
// Signatures[i] must be Members[i]'s signature; the leader must be a member
// and at least Pct percent of the members (rounded up) must have signed
// validly.
type Quorum struct {
	Pct uint64
}

var _ domain.Verifier = Quorum{}

// NewQuorum returns a verifier requiring pct percent of members, clamped to
// [1, 100]. Zero selects DefaultQuorumPct.
func NewQuorum(pct uint64) Quorum {
	switch {
	case pct == 0:
		pct = DefaultQuorumPct
	case pct > 100:
		pct = 100
	}
	return Quorum{Pct: pct}
}

// VerifyComputationResult accepts any non-zero digest. Result correctness is
// attested by the swarm signatures, not recomputed here.
func (q Quorum) VerifyComputationResult(hash domain.Digest) bool {
	return !hash.IsZero()
}

// VerifySwarmProof reports whether a quorum of the proof's members signed
// its task hash.
func (q Quorum) VerifySwarmProof(p domain.SwarmProof) bool {
	if p.Leader.IsZero() || p.TaskHash.IsZero() || p.TotalPower == 0 {
		return false
	}
	if len(p.Members) == 0 || len(p.Signatures) != len(p.Members) {
		return false
	}
	if _, dup := domain.DuplicateIdentity(p.Members); dup {
		return false
	}
	if !slices.Contains(p.Members, p.Leader) {
		return false
	}

	valid := uint64(0)
	for i, m := range p.Members {
		if m.IsZero() {
			return false
		}
		if ed25519.Verify(ed25519.PublicKey(m[:]), p.TaskHash[:], p.Signatures[i][:]) {
			valid++
		}
	}
	return valid > 0 && valid >= q.required(len(p.Members))
}

func (q Quorum) required(members int) uint64 {
	pct := q.Pct
	if pct == 0 {
		pct = DefaultQuorumPct
	}
	n := uint64(members)
	return (n*pct + 99) / 100
}

// ─── Static Verifier ────────────────────────────────────────────────────────

// Static returns fixed answers. Useful for tests and for deployments where
// an upstream system has already verified submissions.
type Static struct {
	Result bool
	Proof  bool
}

var _ domain.Verifier = Static{}

// AcceptAll returns a verifier that approves every submission.
func AcceptAll() Static { return Static{Result: true, Proof: true} }

func (s Static) VerifyComputationResult(domain.Digest) bool { return s.Result }

func (s Static) VerifySwarmProof(domain.SwarmProof) bool { return s.Proof }

// ─── Signing ────────────────────────────────────────────────────────────────

// Sign produces a member signature over a task hash.
func Sign(priv ed25519.PrivateKey, taskHash domain.Digest) domain.Signature {
	var sig domain.Signature
	copy(sig[:], ed25519.Sign(priv, taskHash[:]))
	return sig
}
