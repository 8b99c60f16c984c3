// Package engagement tracks likes and shares.
//
// Each (identity, item) pair counts at most once per kind: Record checks the
// identity's dedup set and inserts into it before touching the counters.
package engagement

import (
	"sort"

	"github.com/vibeforge/vibeforge/internal/core"
)

type itemSet map[core.ItemID]struct{}

// Tracker holds per-item counts and per-identity dedup sets.
// It is not safe for concurrent use; the platform serializes access.
type Tracker struct {
	stats  map[core.ItemID]core.InteractionStats
	likes  map[core.Identity]itemSet
	shares map[core.Identity]itemSet
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		stats:  make(map[core.ItemID]core.InteractionStats),
		likes:  make(map[core.Identity]itemSet),
		shares: make(map[core.Identity]itemSet),
	}
}

func (t *Tracker) sets(kind core.EngagementKind) map[core.Identity]itemSet {
	if kind == core.EngagementShare {
		return t.shares
	}
	return t.likes
}

// Has reports whether id already engaged with item in the given way
func (t *Tracker) Has(kind core.EngagementKind, id core.Identity, item core.ItemID) bool {
	_, ok := t.sets(kind)[id][item]
	return ok
}

// HasLiked reports whether id liked item
func (t *Tracker) HasLiked(id core.Identity, item core.ItemID) bool {
	return t.Has(core.EngagementLike, id, item)
}

// HasShared reports whether id shared item
func (t *Tracker) HasShared(id core.Identity, item core.ItemID) bool {
	return t.Has(core.EngagementShare, id, item)
}

// Record counts one engagement and returns the new count for kind.
// A repeat by the same identity changes nothing and returns the current count.
func (t *Tracker) Record(kind core.EngagementKind, id core.Identity, item core.ItemID) uint64 {
	sets := t.sets(kind)
	if _, ok := sets[id][item]; ok {
		return t.stats[item].Count(kind)
	}
	if sets[id] == nil {
		sets[id] = make(itemSet)
	}
	sets[id][item] = struct{}{}

	st := t.stats[item]
	if kind == core.EngagementShare {
		st.ShareCount++
	} else {
		st.LikeCount++
	}
	t.stats[item] = st
	return st.Count(kind)
}

// RecordLike counts a like by id on item
func (t *Tracker) RecordLike(id core.Identity, item core.ItemID) uint64 {
	return t.Record(core.EngagementLike, id, item)
}

// RecordShare counts a share by id on item
func (t *Tracker) RecordShare(id core.Identity, item core.ItemID) uint64 {
	return t.Record(core.EngagementShare, id, item)
}

// Init registers item with zero counts
func (t *Tracker) Init(item core.ItemID) {
	t.stats[item] = core.InteractionStats{}
}

// Known reports whether stats exist for item
func (t *Tracker) Known(item core.ItemID) bool {
	_, ok := t.stats[item]
	return ok
}

// Stats returns the counts of item, zeros when unknown
func (t *Tracker) Stats(item core.ItemID) core.InteractionStats {
	return t.stats[item]
}

// Forget clears the like and share sets of id.
// Item counters are left untouched.
func (t *Tracker) Forget(id core.Identity) {
	delete(t.likes, id)
	delete(t.shares, id)
}

// EachStats calls fn for every known item in id order
func (t *Tracker) EachStats(fn func(item core.ItemID, stats core.InteractionStats)) {
	ids := make([]core.ItemID, 0, len(t.stats))
	for id := range t.stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(id, t.stats[id])
	}
}
