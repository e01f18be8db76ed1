package domain

import "time"

// BaseRewardRate is the fixed reward_rate: reward units per computation unit.
const BaseRewardRate = 100

// MaxBonusPct bounds leader and referral bonus percentages.
const MaxBonusPct = 100

// Pool is the singleton stake/bonus configuration. Only Authority may
// reconfigure it, and reconfiguration is not exposed.
type Pool struct {
	ID            string    `json:"id"`
	Authority     Identity  `json:"authority"`
	TotalStaked   uint64    `json:"total_staked"`
	RewardRate    uint64    `json:"reward_rate"`
	MinStake      uint64    `json:"min_stake"`
	LeaderBonus   uint64    `json:"leader_bonus"`
	ReferralBonus uint64    `json:"referral_bonus"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReserveAccount is the ledger account that funds leader bonuses.
func (p *Pool) ReserveAccount() Account { return ReserveAccount(p.ID) }

// ReferralInfo tracks accrued referral rewards for one referrer.
// Accrual is driven from outside this service.
type ReferralInfo struct {
	ID              string    `json:"id"`
	Referrer        Identity  `json:"referrer"`
	TotalRewards    uint64    `json:"total_rewards"`
	ActiveReferrals uint64    `json:"active_referrals"`
	CreatedAt       time.Time `json:"created_at"`
}
