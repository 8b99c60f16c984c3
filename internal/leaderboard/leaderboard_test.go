package leaderboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/engagement"
	"github.com/vibeforge/vibeforge/internal/ledger"
)

func TestRebuild_Empty(t *testing.T) {
	board := Rebuild(ledger.NewStore(100), engagement.NewTracker(), core.AnonymousIdentity)

	assert.Empty(t, board.TopCreators)
	assert.Empty(t, board.MostLiked)
	assert.Empty(t, board.MostShared)
}

func TestRebuild_ExcludesAnonymous(t *testing.T) {
	book := ledger.NewStore(100)
	book.Credit(core.AnonymousIdentity, 1000)
	book.Ensure("alice")

	board := Rebuild(book, engagement.NewTracker(), core.AnonymousIdentity)

	require.Len(t, board.TopCreators, 1)
	assert.Equal(t, core.Identity("alice"), board.TopCreators[0].Identity)
}

func TestRebuild_BoundAndOrder(t *testing.T) {
	book := ledger.NewStore(0)
	tracker := engagement.NewTracker()
	for i := 0; i < 25; i++ {
		id := core.Identity(fmt.Sprintf("user-%02d", i))
		book.Credit(id, uint64((i*7)%13))

		item := core.ItemID(fmt.Sprintf("item-%02d", i))
		tracker.Init(item)
		for j := 0; j < i%6; j++ {
			tracker.RecordLike(core.Identity(fmt.Sprintf("fan-%d", j)), item)
		}
		for j := 0; j < i%4; j++ {
			tracker.RecordShare(core.Identity(fmt.Sprintf("fan-%d", j)), item)
		}
	}

	board := Rebuild(book, tracker, core.AnonymousIdentity)

	require.Len(t, board.TopCreators, Size)
	require.Len(t, board.MostLiked, Size)
	require.Len(t, board.MostShared, Size)

	for i := 1; i < Size; i++ {
		assert.GreaterOrEqual(t, board.TopCreators[i-1].Tokens, board.TopCreators[i].Tokens)
		assert.GreaterOrEqual(t, board.MostLiked[i-1].Count, board.MostLiked[i].Count)
		assert.GreaterOrEqual(t, board.MostShared[i-1].Count, board.MostShared[i].Count)
	}
	assert.Equal(t, uint64(12), board.TopCreators[0].Tokens)
	assert.Equal(t, uint64(5), board.MostLiked[0].Count)
	assert.Equal(t, uint64(3), board.MostShared[0].Count)
}

func TestRebuild_TiesByKey(t *testing.T) {
	book := ledger.NewStore(100)
	book.Ensure("carol")
	book.Ensure("alice")
	book.Ensure("bob")

	board := Rebuild(book, engagement.NewTracker(), core.AnonymousIdentity)

	require.Len(t, board.TopCreators, 3)
	assert.Equal(t, core.Identity("alice"), board.TopCreators[0].Identity)
	assert.Equal(t, core.Identity("bob"), board.TopCreators[1].Identity)
	assert.Equal(t, core.Identity("carol"), board.TopCreators[2].Identity)
}

func TestRebuild_DropsEntriesThatFellOut(t *testing.T) {
	book := ledger.NewStore(0)
	for i := 0; i < Size; i++ {
		book.Credit(core.Identity(fmt.Sprintf("u%d", i)), 10)
	}
	book.Credit("late", 5)

	board := Rebuild(book, engagement.NewTracker(), core.AnonymousIdentity)
	for _, e := range board.TopCreators {
		assert.NotEqual(t, core.Identity("late"), e.Identity)
	}

	book.Credit("late", 100)
	board = Rebuild(book, engagement.NewTracker(), core.AnonymousIdentity)
	assert.Equal(t, core.Identity("late"), board.TopCreators[0].Identity)

	seen := map[core.Identity]int{}
	for _, e := range board.TopCreators {
		seen[e.Identity]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "identity %s listed more than once", id)
	}
}
