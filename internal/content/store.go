// Package content owns the items minted by each creator.
package content

import (
	"fmt"
	"time"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Store keeps, per creator, the items they minted in insertion order,
// plus a global index from item id to creator.
// It is not safe for concurrent use; the platform serializes access.
type Store struct {
	byCreator map[core.Identity][]*core.Item
	index     map[core.ItemID]core.Identity
}

// NewStore creates an empty content store
func NewStore() *Store {
	return &Store{
		byCreator: make(map[core.Identity][]*core.Item),
		index:     make(map[core.ItemID]core.Identity),
	}
}

// FormatID derives an item id from its creator and creation second.
// attempt > 1 appends a suffix so that repeated mints stay unique.
func FormatID(creator core.Identity, createdAt time.Time, attempt int) core.ItemID {
	if attempt <= 1 {
		return core.ItemID(fmt.Sprintf("%s-%d", creator, createdAt.Unix()))
	}
	return core.ItemID(fmt.Sprintf("%s-%d-%d", creator, createdAt.Unix(), attempt))
}

// Append stores item under its creator
func (s *Store) Append(item core.Item) error {
	if _, ok := s.index[item.ID]; ok {
		return fmt.Errorf("append %s: %w", item.ID, core.ErrDuplicateItem)
	}
	stored := item
	s.byCreator[item.Creator] = append(s.byCreator[item.Creator], &stored)
	s.index[item.ID] = item.Creator
	return nil
}

// Exists reports whether an item with id is stored
func (s *Store) Exists(id core.ItemID) bool {
	_, ok := s.index[id]
	return ok
}

// Find returns a copy of the item with id
func (s *Store) Find(id core.ItemID) (core.Item, error) {
	item := s.lookup(id)
	if item == nil {
		return core.Item{}, fmt.Errorf("find %s: %w", id, core.ErrItemNotFound)
	}
	return *item, nil
}

// ListByCreator returns copies of the creator's items in insertion order
func (s *Store) ListByCreator(creator core.Identity) []core.Item {
	items := s.byCreator[creator]
	out := make([]core.Item, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}

// SetCounts mirrors engagement counts onto the stored item
func (s *Store) SetCounts(id core.ItemID, stats core.InteractionStats) error {
	item := s.lookup(id)
	if item == nil {
		return fmt.Errorf("set counts %s: %w", id, core.ErrItemNotFound)
	}
	item.LikeCount = stats.LikeCount
	item.ShareCount = stats.ShareCount
	return nil
}

// RemoveCreator drops every item of creator and returns their ids
func (s *Store) RemoveCreator(creator core.Identity) []core.ItemID {
	items := s.byCreator[creator]
	ids := make([]core.ItemID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		delete(s.index, item.ID)
	}
	delete(s.byCreator, creator)
	return ids
}

// Len returns the number of stored items
func (s *Store) Len() int {
	return len(s.index)
}

func (s *Store) lookup(id core.ItemID) *core.Item {
	creator, ok := s.index[id]
	if !ok {
		return nil
	}
	for _, item := range s.byCreator[creator] {
		if item.ID == id {
			return item
		}
	}
	return nil
}
