// Package rewards computes token and reputation deltas for platform events.
// Everything here is a pure function of the policy and the creator's reputation.
package rewards

import (
	"fmt"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Default economy constants
const (
	InitialBalance     uint64 = 100
	MintCost           uint64 = 5
	LikeRewardUser     uint64 = 1
	LikeRewardCreator  uint64 = 2
	ShareRewardUser    uint64 = 2
	ShareRewardCreator uint64 = 3
	StakingReward      uint64 = 5
)

// Policy holds the economy parameters
type Policy struct {
	InitialBalance     uint64 `json:"initial_balance" yaml:"initial_balance"`
	MintCost           uint64 `json:"mint_cost" yaml:"mint_cost"`
	LikeRewardUser     uint64 `json:"like_reward_user" yaml:"like_reward_user"`
	LikeRewardCreator  uint64 `json:"like_reward_creator" yaml:"like_reward_creator"`
	ShareRewardUser    uint64 `json:"share_reward_user" yaml:"share_reward_user"`
	ShareRewardCreator uint64 `json:"share_reward_creator" yaml:"share_reward_creator"`
	StakingReward      uint64 `json:"staking_reward" yaml:"staking_reward"`

	// Reputation deltas; all non-negative so reputation never decreases
	MintReputation         float32 `json:"mint_reputation" yaml:"mint_reputation"`
	LikeActorReputation    float32 `json:"like_actor_reputation" yaml:"like_actor_reputation"`
	LikeCreatorReputation  float32 `json:"like_creator_reputation" yaml:"like_creator_reputation"`
	ShareActorReputation   float32 `json:"share_actor_reputation" yaml:"share_actor_reputation"`
	ShareCreatorReputation float32 `json:"share_creator_reputation" yaml:"share_creator_reputation"`
}

// Default returns the standard economy
func Default() Policy {
	return Policy{
		InitialBalance:     InitialBalance,
		MintCost:           MintCost,
		LikeRewardUser:     LikeRewardUser,
		LikeRewardCreator:  LikeRewardCreator,
		ShareRewardUser:    ShareRewardUser,
		ShareRewardCreator: ShareRewardCreator,
		StakingReward:      StakingReward,

		MintReputation:         0.1,
		LikeActorReputation:    0.01,
		LikeCreatorReputation:  0.05,
		ShareActorReputation:   0.02,
		ShareCreatorReputation: 0.1,
	}
}

// Validate rejects policies that would let reputation decrease
func (p Policy) Validate() error {
	deltas := map[string]float32{
		"mint_reputation":          p.MintReputation,
		"like_actor_reputation":    p.LikeActorReputation,
		"like_creator_reputation":  p.LikeCreatorReputation,
		"share_actor_reputation":   p.ShareActorReputation,
		"share_creator_reputation": p.ShareCreatorReputation,
	}
	for name, d := range deltas {
		if d < 0 {
			return fmt.Errorf("%s must not be negative: %w", name, core.ErrInvalidInput)
		}
	}
	return nil
}

// Outcome is the effect of one event on the actor and the item's creator
type Outcome struct {
	ActorCost         uint64
	ActorReward       uint64
	CreatorReward     uint64
	ActorReputation   float32
	CreatorReputation float32
}

// Scale multiplies a base reward by reputation and truncates toward zero
func Scale(base uint64, reputation float32) uint64 {
	v := float32(base) * reputation
	if v <= 0 {
		return 0
	}
	return uint64(v)
}

// Mint returns the outcome of minting an item; the actor is the creator
func (p Policy) Mint() Outcome {
	return Outcome{
		ActorCost:         p.MintCost,
		CreatorReputation: p.MintReputation,
	}
}

// Like returns the outcome of a like given the creator's current reputation
func (p Policy) Like(creatorReputation float32) Outcome {
	return Outcome{
		ActorReward:       p.LikeRewardUser,
		CreatorReward:     Scale(p.LikeRewardCreator, creatorReputation),
		ActorReputation:   p.LikeActorReputation,
		CreatorReputation: p.LikeCreatorReputation,
	}
}

// Share returns the outcome of a share given the creator's current reputation
func (p Policy) Share(creatorReputation float32) Outcome {
	return Outcome{
		ActorReward:       p.ShareRewardUser,
		CreatorReward:     Scale(p.ShareRewardCreator, creatorReputation),
		ActorReputation:   p.ShareActorReputation,
		CreatorReputation: p.ShareCreatorReputation,
	}
}

// Engage dispatches to Like or Share
func (p Policy) Engage(kind core.EngagementKind, creatorReputation float32) Outcome {
	if kind == core.EngagementShare {
		return p.Share(creatorReputation)
	}
	return p.Like(creatorReputation)
}
