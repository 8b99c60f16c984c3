// Package leaderboard derives the top-N views from the ledger and the
// interaction tracker. Views are rebuilt from scratch after every mutation.
package leaderboard

import (
	"cmp"
	"slices"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Size is the maximum length of each view
const Size = 10

// BalanceSource enumerates materialized balances
type BalanceSource interface {
	EachBalance(fn func(id core.Identity, balance uint64))
}

// StatsSource enumerates per-item engagement counts
type StatsSource interface {
	EachStats(fn func(item core.ItemID, stats core.InteractionStats))
}

type scored[K cmp.Ordered] struct {
	key   K
	score uint64
}

// top sorts by score descending, key ascending on ties, and keeps n entries
func top[K cmp.Ordered](entries []scored[K], n int) []scored[K] {
	slices.SortFunc(entries, func(a, b scored[K]) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Rebuild recomputes all three views. Balances of the excluded identity
// (the anonymous caller) never appear among top creators.
func Rebuild(balances BalanceSource, stats StatsSource, excluded core.Identity) core.Leaderboard {
	var creators []scored[core.Identity]
	balances.EachBalance(func(id core.Identity, balance uint64) {
		if id == excluded {
			return
		}
		creators = append(creators, scored[core.Identity]{key: id, score: balance})
	})

	var liked, shared []scored[core.ItemID]
	stats.EachStats(func(item core.ItemID, st core.InteractionStats) {
		liked = append(liked, scored[core.ItemID]{key: item, score: st.LikeCount})
		shared = append(shared, scored[core.ItemID]{key: item, score: st.ShareCount})
	})

	board := core.Leaderboard{
		TopCreators: make([]core.CreatorScore, 0, Size),
		MostLiked:   make([]core.ItemScore, 0, Size),
		MostShared:  make([]core.ItemScore, 0, Size),
	}
	for _, e := range top(creators, Size) {
		board.TopCreators = append(board.TopCreators, core.CreatorScore{Identity: e.key, Tokens: e.score})
	}
	for _, e := range top(liked, Size) {
		board.MostLiked = append(board.MostLiked, core.ItemScore{ItemID: e.key, Count: e.score})
	}
	for _, e := range top(shared, Size) {
		board.MostShared = append(board.MostShared, core.ItemScore{ItemID: e.key, Count: e.score})
	}
	return board
}
