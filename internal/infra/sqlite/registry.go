package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// ─── Pool Repository ────────────────────────────────────────────────────────

const poolColumns = `id, authority, total_staked, reward_rate, min_stake, leader_bonus, referral_bonus, created_at`

// InsertPool stores the pool record.
func (t *txView) InsertPool(ctx context.Context, p domain.Pool) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO pools (`+poolColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Authority.String(), p.TotalStaked, p.RewardRate, p.MinStake,
		p.LeaderBonus, p.ReferralBonus, toUnix(p.CreatedAt),
	)
	return err
}

// GetPool retrieves a pool by ID; (nil, nil) if absent.
func (t *txView) GetPool(ctx context.Context, id string) (*domain.Pool, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = ?`, id)
	return scanPool(row)
}

// CurrentPool returns the singleton pool; (nil, nil) before initialization.
func (t *txView) CurrentPool(ctx context.Context) (*domain.Pool, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+poolColumns+` FROM pools ORDER BY created_at LIMIT 1`)
	return scanPool(row)
}

func scanPool(s scanner) (*domain.Pool, error) {
	var p domain.Pool
	var authority string
	var createdAt int64
	err := s.Scan(&p.ID, &authority, &p.TotalStaked, &p.RewardRate, &p.MinStake,
		&p.LeaderBonus, &p.ReferralBonus, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Authority, err = domain.ParseIdentity(authority); err != nil {
		return nil, fmt.Errorf("pool %s: %w", p.ID, err)
	}
	p.CreatedAt = fromUnix(createdAt)
	return &p, nil
}

// ─── Swarm Repository ───────────────────────────────────────────────────────

const swarmColumns = `id, leader, members, total_power, tasks_completed, performance_score, created_at`

// InsertSwarm stores a new swarm. Members are kept in order as a JSON array.
func (t *txView) InsertSwarm(ctx context.Context, s domain.Swarm) error {
	members, err := json.Marshal(s.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO swarms (`+swarmColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Leader.String(), string(members), s.TotalPower,
		s.TasksCompleted, s.PerformanceScore, toUnix(s.CreatedAt),
	)
	return err
}

// GetSwarm retrieves a swarm by ID; (nil, nil) if absent.
func (t *txView) GetSwarm(ctx context.Context, id string) (*domain.Swarm, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+swarmColumns+` FROM swarms WHERE id = ?`, id)
	return scanSwarm(row)
}

// ListSwarms returns the most recently formed swarms.
func (t *txView) ListSwarms(ctx context.Context, limit int) ([]domain.Swarm, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+swarmColumns+` FROM swarms ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swarms []domain.Swarm
	for rows.Next() {
		s, err := scanSwarm(rows)
		if err != nil {
			return nil, err
		}
		swarms = append(swarms, *s)
	}
	return swarms, rows.Err()
}

func scanSwarm(sc scanner) (*domain.Swarm, error) {
	var s domain.Swarm
	var leader, members string
	var createdAt int64
	err := sc.Scan(&s.ID, &leader, &members, &s.TotalPower,
		&s.TasksCompleted, &s.PerformanceScore, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Leader, err = domain.ParseIdentity(leader); err != nil {
		return nil, fmt.Errorf("swarm %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(members), &s.Members); err != nil {
		return nil, fmt.Errorf("swarm %s: decode members: %w", s.ID, err)
	}
	s.CreatedAt = fromUnix(createdAt)
	return &s, nil
}

// ─── Referral Repository ────────────────────────────────────────────────────

// InsertReferral stores a referral record. One record per referrer.
func (t *txView) InsertReferral(ctx context.Context, r domain.ReferralInfo) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO referrals (referrer, id, total_rewards, active_referrals, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Referrer.String(), r.ID, r.TotalRewards, r.ActiveReferrals, toUnix(r.CreatedAt),
	)
	return err
}

// GetReferral retrieves the record for a referrer; (nil, nil) if absent.
func (t *txView) GetReferral(ctx context.Context, referrer domain.Identity) (*domain.ReferralInfo, error) {
	var r domain.ReferralInfo
	var ref string
	var createdAt int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT referrer, id, total_rewards, active_referrals, created_at
		 FROM referrals WHERE referrer = ?`, referrer.String(),
	).Scan(&ref, &r.ID, &r.TotalRewards, &r.ActiveReferrals, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Referrer, err = domain.ParseIdentity(ref); err != nil {
		return nil, fmt.Errorf("referral %s: %w", r.ID, err)
	}
	r.CreatedAt = fromUnix(createdAt)
	return &r, nil
}
