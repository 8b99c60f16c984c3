// Package core defines the fundamental types for VibeForge.
// Every store and the platform orchestrator speak in these types.
package core

import (
	"time"
)

// -----------------------------------------------------------------------------
// IDENTITY - The opaque caller
// -----------------------------------------------------------------------------

// Identity is an opaque caller token. The core compares and hashes it,
// it never looks inside.
type Identity string

// String returns the identity as text
func (id Identity) String() string {
	return string(id)
}

// AnonymousIdentity is the caller used when the transport supplies none
const AnonymousIdentity Identity = "2vxsx-fae"

// -----------------------------------------------------------------------------
// ITEM - A piece of minted content
// -----------------------------------------------------------------------------

// ItemID is a type-safe identifier for items
type ItemID string

// Item is a content record created by an identity.
// Like and share counts mirror the interaction tracker.
type Item struct {
	ID         ItemID    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	LikeCount  uint64    `json:"like_count"`
	ShareCount uint64    `json:"share_count"`
	Creator    Identity  `json:"creator"`
}

// -----------------------------------------------------------------------------
// ENGAGEMENT - Likes and shares
// -----------------------------------------------------------------------------

// EngagementKind distinguishes likes from shares
type EngagementKind string

const (
	EngagementLike  EngagementKind = "like"
	EngagementShare EngagementKind = "share"
)

// InteractionStats are the aggregate engagement counts of one item
type InteractionStats struct {
	LikeCount  uint64 `json:"like_count"`
	ShareCount uint64 `json:"share_count"`
}

// Count returns the counter for the given kind
func (s InteractionStats) Count(kind EngagementKind) uint64 {
	if kind == EngagementShare {
		return s.ShareCount
	}
	return s.LikeCount
}

// -----------------------------------------------------------------------------
// LEADERBOARD - Derived top-N views
// -----------------------------------------------------------------------------

// CreatorScore ranks an identity by token balance
type CreatorScore struct {
	Identity Identity `json:"identity"`
	Tokens   uint64   `json:"tokens"`
}

// ItemScore ranks an item by an engagement count
type ItemScore struct {
	ItemID ItemID `json:"item_id"`
	Count  uint64 `json:"count"`
}

// Leaderboard holds the three top-N views
type Leaderboard struct {
	TopCreators []CreatorScore `json:"top_creators"`
	MostLiked   []ItemScore    `json:"most_liked"`
	MostShared  []ItemScore    `json:"most_shared"`
}

// Clone returns a deep copy that callers may keep
func (l Leaderboard) Clone() Leaderboard {
	return Leaderboard{
		TopCreators: append([]CreatorScore{}, l.TopCreators...),
		MostLiked:   append([]ItemScore{}, l.MostLiked...),
		MostShared:  append([]ItemScore{}, l.MostShared...),
	}
}

// -----------------------------------------------------------------------------
// EVENTS - Accepted mutations
// -----------------------------------------------------------------------------

// EventKind names an accepted mutation
type EventKind string

const (
	EventItemMinted     EventKind = "item.minted"
	EventItemLiked      EventKind = "item.liked"
	EventItemShared     EventKind = "item.shared"
	EventAccountReset   EventKind = "account.reset"
	EventTokensStaked   EventKind = "tokens.staked"
	EventStakingClaimed EventKind = "staking.claimed"
)

// Event describes one accepted mutation after it has been applied.
// Observers (journal, metrics, websocket) receive these in arrival order.
type Event struct {
	Kind    EventKind `json:"kind"`
	Actor   Identity  `json:"actor"`
	At      time.Time `json:"at"`
	ItemID  ItemID    `json:"item_id,omitempty"`
	Creator Identity  `json:"creator,omitempty"`

	Debited       uint64 `json:"debited,omitempty"`        // Tokens removed from the actor
	ActorReward   uint64 `json:"actor_reward,omitempty"`   // Tokens credited to the actor
	CreatorReward uint64 `json:"creator_reward,omitempty"` // Tokens credited to the creator
	Count         uint64 `json:"count,omitempty"`          // Engagement count after the event
}

// Credited returns the total tokens the event created
func (e Event) Credited() uint64 {
	return e.ActorReward + e.CreatorReward
}
