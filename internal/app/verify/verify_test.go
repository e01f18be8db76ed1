package verify

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutu-network/swarmpay/internal/domain"
)

type member struct {
	id   domain.Identity
	priv ed25519.PrivateKey
}

func newMembers(t *testing.T, n int) []member {
	t.Helper()
	out := make([]member, n)
	for i := range out {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		copy(out[i].id[:], pub)
		out[i].priv = priv
	}
	return out
}

func sampleTask() *domain.Task {
	return &domain.Task{
		ID:               "task-1",
		PoolID:           "pool-1",
		Creator:          domain.Identity{1},
		ComputationUnits: 10,
		Reward:           1000,
	}
}

// proofSignedBy builds a proof over hash where only the first `signed`
// members produce valid signatures.
func proofSignedBy(ms []member, hash domain.Digest, signed int) domain.SwarmProof {
	p := domain.SwarmProof{
		Leader:     ms[0].id,
		TotalPower: 500,
		TaskHash:   hash,
	}
	for i, m := range ms {
		p.Members = append(p.Members, m.id)
		if i < signed {
			p.Signatures = append(p.Signatures, Sign(m.priv, hash))
		} else {
			p.Signatures = append(p.Signatures, domain.Signature{})
		}
	}
	return p
}

func TestTaskHash_Deterministic(t *testing.T) {
	a := TaskHash(sampleTask())
	b := TaskHash(sampleTask())
	require.Equal(t, a, b)
	require.False(t, a.IsZero())
}

func TestTaskHash_IgnoresMutableFields(t *testing.T) {
	task := sampleTask()
	before := TaskHash(task)

	task.Status = domain.TaskCompleted
	task.Completion = &domain.Completion{Worker: domain.Identity{9}}
	require.Equal(t, before, TaskHash(task))
}

func TestTaskHash_CommitsToEveryField(t *testing.T) {
	base := TaskHash(sampleTask())

	mutations := map[string]func(*domain.Task){
		"id":      func(t *domain.Task) { t.ID = "task-2" },
		"pool":    func(t *domain.Task) { t.PoolID = "pool-2" },
		"creator": func(t *domain.Task) { t.Creator = domain.Identity{2} },
		"units":   func(t *domain.Task) { t.ComputationUnits = 11 },
		"reward":  func(t *domain.Task) { t.Reward = 1001 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			task := sampleTask()
			mutate(task)
			require.NotEqual(t, base, TaskHash(task))
		})
	}
}

func TestTaskHash_FieldBoundaries(t *testing.T) {
	a := sampleTask()
	a.ID, a.PoolID = "ab", "c"
	b := sampleTask()
	b.ID, b.PoolID = "a", "bc"
	require.NotEqual(t, TaskHash(a), TaskHash(b))
}

func TestQuorum_VerifyComputationResult(t *testing.T) {
	q := NewQuorum(0)
	require.False(t, q.VerifyComputationResult(domain.Digest{}))
	require.True(t, q.VerifyComputationResult(domain.Digest{0xAB}))
}

func TestQuorum_VerifySwarmProof(t *testing.T) {
	ms := newMembers(t, 3)
	hash := TaskHash(sampleTask())

	tests := []struct {
		name   string
		pct    uint64
		signed int
		want   bool
	}{
		{"all signed", 67, 3, true},
		{"two of three meets 67%", 67, 2, true},
		{"one of three below 67%", 67, 1, false},
		{"none signed", 1, 0, false},
		{"unanimity required", 100, 2, false},
		{"unanimity met", 100, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuorum(tt.pct)
			require.Equal(t, tt.want, q.VerifySwarmProof(proofSignedBy(ms, hash, tt.signed)))
		})
	}
}

func TestQuorum_RejectsMalformedProofs(t *testing.T) {
	ms := newMembers(t, 3)
	hash := TaskHash(sampleTask())
	q := NewQuorum(DefaultQuorumPct)

	cases := map[string]func(p *domain.SwarmProof){
		"zero leader":       func(p *domain.SwarmProof) { p.Leader = domain.Identity{} },
		"zero task hash":    func(p *domain.SwarmProof) { p.TaskHash = domain.Digest{} },
		"zero power":        func(p *domain.SwarmProof) { p.TotalPower = 0 },
		"missing sigs":      func(p *domain.SwarmProof) { p.Signatures = p.Signatures[:2] },
		"no members":        func(p *domain.SwarmProof) { p.Members, p.Signatures = nil, nil },
		"duplicate member":  func(p *domain.SwarmProof) { p.Members[2] = p.Members[1] },
		"zero member":       func(p *domain.SwarmProof) { p.Members[2] = domain.Identity{} },
		"leader not member": func(p *domain.SwarmProof) { p.Leader = domain.Identity{7} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := proofSignedBy(ms, hash, 3)
			require.True(t, q.VerifySwarmProof(p))
			mutate(&p)
			require.False(t, q.VerifySwarmProof(p))
		})
	}
}

func TestQuorum_WrongTaskHash(t *testing.T) {
	ms := newMembers(t, 3)
	p := proofSignedBy(ms, TaskHash(sampleTask()), 3)

	other := sampleTask()
	other.ID = "task-other"
	p.TaskHash = TaskHash(other)

	require.False(t, NewQuorum(0).VerifySwarmProof(p))
}

func TestQuorum_Referential(t *testing.T) {
	ms := newMembers(t, 4)
	p := proofSignedBy(ms, TaskHash(sampleTask()), 3)
	q := NewQuorum(DefaultQuorumPct)

	first := q.VerifySwarmProof(p)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, q.VerifySwarmProof(p))
	}
}

func TestNewQuorum_Clamps(t *testing.T) {
	require.Equal(t, uint64(DefaultQuorumPct), NewQuorum(0).Pct)
	require.Equal(t, uint64(100), NewQuorum(250).Pct)
	require.Equal(t, uint64(50), NewQuorum(50).Pct)
}

func TestStatic(t *testing.T) {
	v := AcceptAll()
	require.True(t, v.VerifyComputationResult(domain.Digest{}))
	require.True(t, v.VerifySwarmProof(domain.SwarmProof{}))

	reject := Static{Result: false, Proof: true}
	require.False(t, reject.VerifyComputationResult(domain.Digest{1}))
	require.True(t, reject.VerifySwarmProof(domain.SwarmProof{}))
}
