package swarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/infra/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db, zap.NewNop())
}

func TestCreateSwarm(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	leader := domain.Identity{1}
	members := []domain.Identity{{1}, {2}, {3}}

	sw, err := svc.CreateSwarm(ctx, leader, members, 750)
	require.NoError(t, err)
	require.NotEmpty(t, sw.ID)
	require.Equal(t, leader, sw.Leader)
	require.Equal(t, members, sw.Members)
	require.Equal(t, uint64(750), sw.TotalPower)
	require.Zero(t, sw.TasksCompleted)
	require.Equal(t, uint64(domain.InitialPerformanceScore), sw.PerformanceScore)

	got, err := svc.Get(ctx, sw.ID)
	require.NoError(t, err)
	require.Equal(t, sw.Members, got.Members)
	require.Equal(t, sw.TotalPower, got.TotalPower)
	require.True(t, got.HasMember(domain.Identity{3}))
}

func TestCreateSwarm_DoesNotAliasInput(t *testing.T) {
	svc := newTestService(t)
	members := []domain.Identity{{1}, {2}}

	sw, err := svc.CreateSwarm(context.Background(), domain.Identity{1}, members, 10)
	require.NoError(t, err)

	members[0] = domain.Identity{9}
	require.Equal(t, domain.Identity{1}, sw.Members[0])
}

func TestCreateSwarm_Invalid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		leader  domain.Identity
		members []domain.Identity
	}{
		{"no members", domain.Identity{1}, nil},
		{"duplicate member", domain.Identity{1}, []domain.Identity{{1}, {2}, {1}}},
		{"zero member", domain.Identity{1}, []domain.Identity{{1}, {}}},
		{"zero leader", domain.Identity{}, []domain.Identity{{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSwarm(ctx, tt.leader, tt.members, 100)
			require.ErrorIs(t, err, domain.ErrInvalidSwarm)
		})
	}

	swarms, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, swarms)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrSwarmNotFound)
}

func TestList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := byte(1); i <= 3; i++ {
		_, err := svc.CreateSwarm(ctx, domain.Identity{i}, []domain.Identity{{i}}, uint64(i)*100)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	limited, err := svc.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
