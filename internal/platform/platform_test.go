package platform

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/identity"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/rewards"
	"github.com/vibeforge/vibeforge/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) Observe(ev core.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []core.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	p      *Platform
	caller *testutil.SwitchCaller
	clock  *testutil.StepClock
	events *recorder
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		caller: testutil.NewSwitchCaller("alice"),
		clock:  testutil.NewStepClock(time.Time{}),
		events: &recorder{},
		ctx:    testutil.TestContext(t),
	}
	p, err := New(rewards.Default(),
		WithIdentityProvider(f.caller),
		WithClock(f.clock),
		WithObserver(f.events),
		WithLogger(logging.Nop()),
	)
	require.NoError(t, err)
	f.p = p
	return f
}

func (f *fixture) as(id core.Identity) context.Context {
	f.caller.As(id)
	return f.ctx
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	policy := rewards.Default()
	policy.MintReputation = -1

	_, err := New(policy, WithLogger(logging.Nop()))
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestPlatform_UntouchedDefaults(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, uint64(100), f.p.MyBalance(f.as("nobody")))
	assert.Equal(t, float32(1.0), f.p.MyReputation(f.as("nobody")))
	assert.Empty(t, f.p.ListMyItems(f.as("nobody")))
	assert.Equal(t, core.InteractionStats{}, f.p.ItemStats("missing"))
}

func TestPlatform_Scenarios(t *testing.T) {
	f := newFixture(t)

	// Mint
	id, err := f.p.Mint(f.as("alice"), "hello")
	require.NoError(t, err)
	assert.Equal(t, core.ItemID(fmt.Sprintf("alice-%d", testutil.Epoch.Unix())), id)
	assert.Equal(t, uint64(95), f.p.MyBalance(f.as("alice")))
	assert.InDelta(t, 1.1, f.p.MyReputation(f.as("alice")), 1e-6)

	items := f.p.ListMyItems(f.as("alice"))
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Content)
	assert.Equal(t, core.Identity("alice"), items[0].Creator)

	board := f.p.Leaderboard()
	require.Len(t, board.TopCreators, 1)
	assert.Equal(t, core.CreatorScore{Identity: "alice", Tokens: 95}, board.TopCreators[0])

	// Like
	n, err := f.p.Like(f.as("bob"), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint64(97), f.p.MyBalance(f.as("alice")))
	assert.Equal(t, uint64(101), f.p.MyBalance(f.as("bob")))
	assert.Equal(t, core.InteractionStats{LikeCount: 1}, f.p.ItemStats(id))

	// Share
	n, err = f.p.Share(f.as("bob"), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint64(100), f.p.MyBalance(f.as("alice")))
	assert.Equal(t, uint64(103), f.p.MyBalance(f.as("bob")))

	// Repeated like is a no-op
	aliceRep, bobRep := f.p.MyReputation(f.as("alice")), f.p.MyReputation(f.as("bob"))
	n, err = f.p.Like(f.as("bob"), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, uint64(100), f.p.MyBalance(f.as("alice")))
	assert.Equal(t, uint64(103), f.p.MyBalance(f.as("bob")))
	assert.Equal(t, aliceRep, f.p.MyReputation(f.as("alice")))
	assert.Equal(t, bobRep, f.p.MyReputation(f.as("bob")))

	items = f.p.ListMyItems(f.as("alice"))
	require.Len(t, items, 1)
	assert.Equal(t, uint64(1), items[0].LikeCount)
	assert.Equal(t, uint64(1), items[0].ShareCount)

	assert.Equal(t, []core.EventKind{
		core.EventItemMinted,
		core.EventItemLiked,
		core.EventItemShared,
	}, f.events.kinds())
}

func TestPlatform_MostLikedOrdering(t *testing.T) {
	f := newFixture(t)

	x, err := f.p.Mint(f.as("alice"), "x")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	y, err := f.p.Mint(f.as("alice"), "y")
	require.NoError(t, err)

	for _, fan := range []core.Identity{"bob", "carol", "dave"} {
		_, err := f.p.Like(f.as(fan), x)
		require.NoError(t, err)
	}
	_, err = f.p.Like(f.as("bob"), y)
	require.NoError(t, err)

	board := f.p.Leaderboard()
	require.Len(t, board.MostLiked, 2)
	assert.Equal(t, core.ItemScore{ItemID: x, Count: 3}, board.MostLiked[0])
	assert.Equal(t, core.ItemScore{ItemID: y, Count: 1}, board.MostLiked[1])
}

func TestPlatform_MintInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := f.as("alice")
	require.NoError(t, f.p.Stake(ctx, 97))

	before := len(f.events.kinds())
	_, err := f.p.Mint(ctx, "too poor")
	require.ErrorIs(t, err, core.ErrInsufficientFunds)

	assert.Equal(t, uint64(3), f.p.MyBalance(ctx))
	assert.Equal(t, float32(1.0), f.p.MyReputation(ctx))
	assert.Empty(t, f.p.ListMyItems(ctx))
	assert.Len(t, f.events.kinds(), before)
}

func TestPlatform_EngageUnknownItem(t *testing.T) {
	f := newFixture(t)
	ctx := f.as("bob")

	_, err := f.p.Like(ctx, "ghost-1")
	require.ErrorIs(t, err, core.ErrItemNotFound)
	_, err = f.p.Share(ctx, "ghost-1")
	require.ErrorIs(t, err, core.ErrItemNotFound)

	assert.Empty(t, f.p.Leaderboard().TopCreators, "failed engagement must not materialize the caller")
	assert.Empty(t, f.events.kinds())
}

func TestPlatform_RapidMintsSameSecond(t *testing.T) {
	f := newFixture(t)
	ctx := f.as("alice")

	seen := map[core.ItemID]bool{}
	for i := 0; i < 5; i++ {
		id, err := f.p.Mint(ctx, fmt.Sprintf("post %d", i))
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	base := fmt.Sprintf("alice-%d", testutil.Epoch.Unix())
	items := f.p.ListMyItems(ctx)
	require.Len(t, items, 5)
	assert.Equal(t, core.ItemID(base), items[0].ID)
	assert.Equal(t, core.ItemID(base+"-2"), items[1].ID)
	assert.Equal(t, core.ItemID(base+"-5"), items[4].ID)
	assert.Equal(t, uint64(75), f.p.MyBalance(ctx))
}

func TestPlatform_ResetAccount(t *testing.T) {
	f := newFixture(t)

	id, err := f.p.Mint(f.as("alice"), "hello")
	require.NoError(t, err)
	_, err = f.p.Like(f.as("bob"), id)
	require.NoError(t, err)
	_, err = f.p.Like(f.as("alice"), id)
	require.NoError(t, err)

	f.p.ResetAccount(f.as("alice"))

	ctx := f.as("alice")
	assert.Equal(t, uint64(100), f.p.MyBalance(ctx))
	assert.Equal(t, float32(1.0), f.p.MyReputation(ctx))
	assert.Empty(t, f.p.ListMyItems(ctx))

	// Stats of removed items are retained
	assert.Equal(t, uint64(2), f.p.ItemStats(id).LikeCount)
	board := f.p.Leaderboard()
	require.NotEmpty(t, board.MostLiked)
	assert.Equal(t, id, board.MostLiked[0].ItemID)

	// The removed item can no longer be engaged with
	_, err = f.p.Like(f.as("carol"), id)
	require.ErrorIs(t, err, core.ErrItemNotFound)

	// Re-minting in the same second skips the retained id
	newID, err := f.p.Mint(f.as("alice"), "again")
	require.NoError(t, err)
	assert.Equal(t, id+"-2", newID)
}

func TestPlatform_ResetClearsLikeSet(t *testing.T) {
	f := newFixture(t)

	id, err := f.p.Mint(f.as("alice"), "hello")
	require.NoError(t, err)
	_, err = f.p.Like(f.as("bob"), id)
	require.NoError(t, err)

	f.p.ResetAccount(f.as("bob"))

	n, err := f.p.Like(f.as("bob"), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestPlatform_Staking(t *testing.T) {
	f := newFixture(t)
	ctx := f.as("alice")

	require.NoError(t, f.p.Stake(ctx, 40))
	assert.Equal(t, uint64(60), f.p.MyBalance(ctx))

	err := f.p.Stake(ctx, 61)
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, uint64(60), f.p.MyBalance(ctx))

	assert.Equal(t, uint64(5), f.p.ClaimStakingRewards(ctx))
	assert.Equal(t, uint64(65), f.p.MyBalance(ctx))
}

func TestPlatform_ClaimMaterializesDefaultBalance(t *testing.T) {
	f := newFixture(t)
	ctx := f.as("newcomer")

	f.p.ClaimStakingRewards(ctx)
	assert.Equal(t, uint64(105), f.p.MyBalance(ctx))

	board := f.p.Leaderboard()
	require.Len(t, board.TopCreators, 1)
	assert.Equal(t, uint64(105), board.TopCreators[0].Tokens)
}

func TestPlatform_AnonymousExcludedFromTopCreators(t *testing.T) {
	f := newFixture(t)

	_, err := f.p.Mint(f.as(""), "anon post")
	require.NoError(t, err)
	assert.Equal(t, uint64(95), f.p.MyBalance(f.as(core.AnonymousIdentity)))
	assert.Empty(t, f.p.Leaderboard().TopCreators)
}

func TestPlatform_ContextProviderDefault(t *testing.T) {
	p, err := New(rewards.Default(), WithLogger(logging.Nop()), WithClock(testutil.NewStepClock(time.Time{})))
	require.NoError(t, err)

	ctx := identity.WithCaller(context.Background(), "erin")
	id, err := p.Mint(ctx, "hi")
	require.NoError(t, err)
	assert.Contains(t, string(id), "erin-")
	assert.Equal(t, uint64(95), p.MyBalance(ctx))
	assert.Equal(t, uint64(100), p.MyBalance(context.Background()))
}

func TestPlatform_LeaderboardIsACopy(t *testing.T) {
	f := newFixture(t)
	_, err := f.p.Mint(f.as("alice"), "x")
	require.NoError(t, err)

	board := f.p.Leaderboard()
	board.TopCreators[0].Tokens = 999
	assert.Equal(t, uint64(95), f.p.Leaderboard().TopCreators[0].Tokens)
}

func TestPlatform_Properties(t *testing.T) {
	f := newFixture(t)
	users := []core.Identity{"u0", "u1", "u2", "u3", "u4"}
	var items []core.ItemID
	lastRep := map[core.Identity]float32{}

	for step := 0; step < 200; step++ {
		user := users[step%len(users)]
		ctx := f.as(user)

		switch step % 4 {
		case 0:
			id, err := f.p.Mint(ctx, "post")
			if err == nil {
				items = append(items, id)
			} else {
				require.ErrorIs(t, err, core.ErrInsufficientFunds)
			}
		case 1:
			if len(items) > 0 {
				_, err := f.p.Like(ctx, items[step%len(items)])
				require.NoError(t, err)
			}
		case 2:
			if len(items) > 0 {
				_, err := f.p.Share(ctx, items[(step*7)%len(items)])
				require.NoError(t, err)
			}
		case 3:
			f.clock.Advance(time.Second)
		}

		for _, u := range users {
			rep := f.p.MyReputation(f.as(u))
			assert.GreaterOrEqual(t, rep, lastRep[u], "reputation of %s decreased", u)
			lastRep[u] = rep
		}

		board := f.p.Leaderboard()
		assert.LessOrEqual(t, len(board.TopCreators), 10)
		assert.LessOrEqual(t, len(board.MostLiked), 10)
		assert.LessOrEqual(t, len(board.MostShared), 10)
	}

	for _, id := range items {
		stats := f.p.ItemStats(id)
		assert.LessOrEqual(t, stats.LikeCount, uint64(len(users)))
		assert.LessOrEqual(t, stats.ShareCount, uint64(len(users)))
	}
}

func TestPlatform_ConcurrentMints(t *testing.T) {
	p, err := New(rewards.Default(), WithLogger(logging.Nop()), WithClock(testutil.NewStepClock(time.Time{})))
	require.NoError(t, err)

	const workers = 8
	const perWorker = 10
	ids := make(chan core.ItemID, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := identity.WithCaller(context.Background(), "shared")
			for i := 0; i < perWorker; i++ {
				id, err := p.Mint(ctx, "x")
				if err == nil {
					ids <- id
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[core.ItemID]bool{}
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	// 100 tokens pay for exactly 20 mints
	assert.Len(t, seen, 20)
	assert.Zero(t, p.MyBalance(identity.WithCaller(context.Background(), "shared")))
}
