// Package platform is the mutation orchestrator: it owns the whole state
// and exposes the minting, engagement, account and staking operations.
//
// Every operation takes exclusive access to the state for its full
// duration, so callers observe a total order of operations and never a
// partially applied one. Fallible checks run before the first write.
package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vibeforge/vibeforge/internal/content"
	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/engagement"
	"github.com/vibeforge/vibeforge/internal/identity"
	"github.com/vibeforge/vibeforge/internal/leaderboard"
	"github.com/vibeforge/vibeforge/internal/ledger"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/rewards"
)

// Observer receives every accepted mutation, in arrival order.
// Observe is called with the platform lock held and must not call back
// into the platform.
type Observer interface {
	Observe(ev core.Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev core.Event)

// Observe implements Observer
func (f ObserverFunc) Observe(ev core.Event) { f(ev) }

// State is the complete platform state
type State struct {
	Ledger     *ledger.Store
	Content    *content.Store
	Engagement *engagement.Tracker
	Board      core.Leaderboard
}

// NewState creates an empty state
func NewState(initialBalance uint64) *State {
	return &State{
		Ledger:     ledger.NewStore(initialBalance),
		Content:    content.NewStore(),
		Engagement: engagement.NewTracker(),
		Board: core.Leaderboard{
			TopCreators: []core.CreatorScore{},
			MostLiked:   []core.ItemScore{},
			MostShared:  []core.ItemScore{},
		},
	}
}

// Platform serializes all operations over one State
type Platform struct {
	mu        sync.RWMutex
	state     *State
	policy    rewards.Policy
	anonymous core.Identity
	ids       identity.Provider
	clock     identity.Clock
	observers []Observer
	log       *logging.Logger
}

// Option configures a Platform
type Option func(*Platform)

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(p *Platform) { p.log = l }
}

// WithObserver registers an observer at construction time
func WithObserver(o Observer) Option {
	return func(p *Platform) { p.observers = append(p.observers, o) }
}

// WithIdentityProvider sets how the caller is resolved
func WithIdentityProvider(ids identity.Provider) Option {
	return func(p *Platform) { p.ids = ids }
}

// WithClock sets the time source
func WithClock(c identity.Clock) Option {
	return func(p *Platform) { p.clock = c }
}

// WithAnonymous overrides the identity used for calls without a caller
func WithAnonymous(id core.Identity) Option {
	return func(p *Platform) { p.anonymous = id }
}

// New creates a platform with the given economy
func New(policy rewards.Policy, opts ...Option) (*Platform, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	p := &Platform{
		policy:    policy,
		anonymous: core.AnonymousIdentity,
		clock:     identity.SystemClock{},
		log:       logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ids == nil {
		p.ids = identity.NewContextProvider(p.anonymous)
	}
	p.log = p.log.WithField("component", "platform")
	p.state = NewState(policy.InitialBalance)

	p.log.Info("platform initialized (initial balance %d, mint cost %d)", policy.InitialBalance, policy.MintCost)
	return p, nil
}

// AddObserver registers an observer for subsequent mutations
func (p *Platform) AddObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Policy returns the economy in effect
func (p *Platform) Policy() rewards.Policy {
	return p.policy
}

// Anonymous returns the identity of callers without a caller
func (p *Platform) Anonymous() core.Identity {
	return p.anonymous
}

// commit rebuilds the leaderboard and notifies observers; callers hold the write lock
func (p *Platform) commit(ev core.Event) {
	s := p.state
	s.Board = leaderboard.Rebuild(s.Ledger, s.Engagement, p.anonymous)
	for _, o := range p.observers {
		o.Observe(ev)
	}
}

// nextItemID returns the first free id for creator at the given time.
// Ids that only survive in interaction stats count as taken.
func (p *Platform) nextItemID(creator core.Identity, at time.Time) core.ItemID {
	s := p.state
	for attempt := 1; ; attempt++ {
		id := content.FormatID(creator, at, attempt)
		if !s.Content.Exists(id) && !s.Engagement.Known(id) {
			return id
		}
	}
}

// Mint creates a new item owned by the caller and charges the mint cost
func (p *Platform) Mint(ctx context.Context, body string) (core.ItemID, error) {
	caller := p.ids.Caller(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state

	out := p.policy.Mint()
	if !s.Ledger.CanDebit(caller, out.ActorCost) {
		p.log.Debug("mint rejected for %s: balance %d", caller, s.Ledger.Balance(caller))
		return "", fmt.Errorf("mint costs %d, balance is %d: %w", out.ActorCost, s.Ledger.Balance(caller), core.ErrInsufficientFunds)
	}

	item := core.Item{
		Content:   body,
		CreatedAt: p.clock.Now(),
		Creator:   caller,
	}
	item.ID = p.nextItemID(caller, item.CreatedAt)

	s.Ledger.Ensure(caller)
	if err := s.Ledger.Debit(caller, out.ActorCost); err != nil {
		return "", err
	}
	if err := s.Content.Append(item); err != nil {
		// nextItemID only hands out free ids
		s.Ledger.Credit(caller, out.ActorCost)
		return "", err
	}
	s.Engagement.Init(item.ID)
	s.Ledger.BumpReputation(caller, out.CreatorReputation)

	p.commit(core.Event{
		Kind:    core.EventItemMinted,
		Actor:   caller,
		At:      item.CreatedAt,
		ItemID:  item.ID,
		Creator: caller,
		Debited: out.ActorCost,
	})
	return item.ID, nil
}

// Like records a like from the caller and returns the item's like count.
// Repeated likes from the same caller return the current count unchanged.
func (p *Platform) Like(ctx context.Context, item core.ItemID) (uint64, error) {
	return p.engage(ctx, core.EngagementLike, item)
}

// Share records a share from the caller and returns the item's share count.
// Repeated shares from the same caller return the current count unchanged.
func (p *Platform) Share(ctx context.Context, item core.ItemID) (uint64, error) {
	return p.engage(ctx, core.EngagementShare, item)
}

func (p *Platform) engage(ctx context.Context, kind core.EngagementKind, itemID core.ItemID) (uint64, error) {
	caller := p.ids.Caller(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state

	if s.Engagement.Has(kind, caller, itemID) {
		return s.Engagement.Stats(itemID).Count(kind), nil
	}

	item, err := s.Content.Find(itemID)
	if err != nil {
		p.log.Debug("%s rejected for %s: %v", kind, caller, err)
		return 0, err
	}
	owner := item.Creator
	out := p.policy.Engage(kind, s.Ledger.Reputation(owner))

	s.Ledger.Ensure(caller)
	count := s.Engagement.Record(kind, caller, itemID)
	s.Ledger.Credit(owner, out.CreatorReward)
	s.Ledger.Credit(caller, out.ActorReward)
	s.Ledger.BumpReputation(caller, out.ActorReputation)
	s.Ledger.BumpReputation(owner, out.CreatorReputation)
	if err := s.Content.SetCounts(itemID, s.Engagement.Stats(itemID)); err != nil {
		return 0, err
	}

	evKind := core.EventItemLiked
	if kind == core.EngagementShare {
		evKind = core.EventItemShared
	}
	p.commit(core.Event{
		Kind:          evKind,
		Actor:         caller,
		At:            p.clock.Now(),
		ItemID:        itemID,
		Creator:       owner,
		ActorReward:   out.ActorReward,
		CreatorReward: out.CreatorReward,
		Count:         count,
	})
	return count, nil
}

// ResetAccount removes the caller's items and engagement history and
// restores the default balance and reputation. Interaction stats of the
// removed items are kept.
func (p *Platform) ResetAccount(ctx context.Context) {
	caller := p.ids.Caller(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state

	removed := s.Content.RemoveCreator(caller)
	s.Engagement.Forget(caller)
	s.Ledger.Reset(caller)

	p.log.Debug("reset %s: removed %d items", caller, len(removed))
	p.commit(core.Event{
		Kind:  core.EventAccountReset,
		Actor: caller,
		At:    p.clock.Now(),
		Count: uint64(len(removed)),
	})
}

// Stake burns amount tokens from the caller's balance
func (p *Platform) Stake(ctx context.Context, amount uint64) error {
	caller := p.ids.Caller(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state

	if !s.Ledger.CanDebit(caller, amount) {
		p.log.Debug("stake of %d rejected for %s", amount, caller)
		return fmt.Errorf("stake %d, balance is %d: %w", amount, s.Ledger.Balance(caller), core.ErrInsufficientFunds)
	}
	s.Ledger.Ensure(caller)
	if err := s.Ledger.Debit(caller, amount); err != nil {
		return err
	}

	p.commit(core.Event{
		Kind:    core.EventTokensStaked,
		Actor:   caller,
		At:      p.clock.Now(),
		Debited: amount,
	})
	return nil
}

// ClaimStakingRewards credits the staking reward to the caller and
// returns the amount credited. It is not linked to prior stakes.
func (p *Platform) ClaimStakingRewards(ctx context.Context) uint64 {
	caller := p.ids.Caller(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	reward := p.policy.StakingReward
	p.state.Ledger.Credit(caller, reward)

	p.commit(core.Event{
		Kind:        core.EventStakingClaimed,
		Actor:       caller,
		At:          p.clock.Now(),
		ActorReward: reward,
	})
	return reward
}

// ListMyItems returns the caller's items in creation order
func (p *Platform) ListMyItems(ctx context.Context) []core.Item {
	caller := p.ids.Caller(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Content.ListByCreator(caller)
}

// MyBalance returns the caller's token balance
func (p *Platform) MyBalance(ctx context.Context) uint64 {
	caller := p.ids.Caller(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Ledger.Balance(caller)
}

// MyReputation returns the caller's reputation score
func (p *Platform) MyReputation(ctx context.Context) float32 {
	caller := p.ids.Caller(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Ledger.Reputation(caller)
}

// ItemStats returns the like and share counts of an item; unknown items read as zero
func (p *Platform) ItemStats(item core.ItemID) core.InteractionStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Engagement.Stats(item)
}

// Leaderboard returns a copy of the current leaderboard
func (p *Platform) Leaderboard() core.Leaderboard {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Board.Clone()
}

// Snapshot summarizes the state size for health reporting
type Snapshot struct {
	Accounts int `json:"accounts"`
	Items    int `json:"items"`
}

// Snapshot returns current state sizes
func (p *Platform) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Accounts: p.state.Ledger.Len(),
		Items:    p.state.Content.Len(),
	}
}
