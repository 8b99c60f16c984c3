package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/testutil"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.TestDB(t).Conn())
}

func TestStore_Append(t *testing.T) {
	store := newStore(t)
	at := testutil.Epoch

	first, err := store.Append("item.minted", "alice", "alice-1", at, map[string]interface{}{"debited": 5})
	require.NoError(t, err)
	assert.Equal(t, Genesis, first.PrevHash)
	assert.NotEmpty(t, first.Hash)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.True(t, first.Timestamp.Equal(at))

	second, err := store.Append("item.liked", "bob", "alice-1", at, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Empty(t, second.Details)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_AppendZeroTimeUsesNow(t *testing.T) {
	store := newStore(t)
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	entry, err := store.Append("account.reset", "alice", "", time.Time{}, nil)
	require.NoError(t, err)
	assert.True(t, entry.Timestamp.Equal(fixed))
}

func TestStore_Verify(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Verify(), "empty journal verifies")

	for i := 0; i < 5; i++ {
		_, err := store.Append("item.minted", "alice", "", testutil.Epoch.Add(time.Duration(i)*time.Second), nil)
		require.NoError(t, err)
	}
	require.NoError(t, store.Verify())
}

func TestStore_Verify_DetectsTampering(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 3; i++ {
		_, err := store.Append("item.liked", "bob", "alice-1", testutil.Epoch, map[string]int{"count": i + 1})
		require.NoError(t, err)
	}

	_, err := store.db.Exec(`UPDATE journal SET details = '{"count":99}' WHERE seq = 2`)
	require.NoError(t, err)

	err = store.Verify()
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, HashMismatch, chainErr.Type)
	assert.Equal(t, 2, chainErr.EntryNum)
	assert.Equal(t, int64(2), chainErr.Seq)
	assert.Contains(t, chainErr.Error(), "journal entry 2 (seq 2, item.liked) was altered")
}

func TestStore_Verify_DetectsBrokenLink(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 3; i++ {
		_, err := store.Append("item.minted", "alice", "", testutil.Epoch, nil)
		require.NoError(t, err)
	}

	_, err := store.db.Exec(`DELETE FROM journal WHERE seq = 2`)
	require.NoError(t, err)

	err = store.Verify()
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, ChainBroken, chainErr.Type)
	assert.Equal(t, 2, chainErr.EntryNum)
	assert.Equal(t, int64(3), chainErr.Seq)
	assert.Contains(t, chainErr.Error(), "does not follow its predecessor")
}

func TestStore_Query(t *testing.T) {
	store := newStore(t)
	base := testutil.Epoch
	appends := []struct {
		kind, actor, item string
		offset            time.Duration
	}{
		{"item.minted", "alice", "alice-1", 0},
		{"item.liked", "bob", "alice-1", time.Second},
		{"item.shared", "bob", "alice-1", 2 * time.Second},
		{"item.minted", "carol", "carol-1", 3 * time.Second},
	}
	for _, a := range appends {
		_, err := store.Append(a.kind, a.actor, a.item, base.Add(a.offset), nil)
		require.NoError(t, err)
	}

	all, err := store.Query(QueryOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "carol", all[0].Actor, "newest first")

	byActor, err := store.Query(QueryOptions{Actor: "bob"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byKind, err := store.Query(QueryOptions{Kind: "item.minted"})
	require.NoError(t, err)
	assert.Len(t, byKind, 2)

	byItem, err := store.Query(QueryOptions{ItemID: "alice-1"})
	require.NoError(t, err)
	assert.Len(t, byItem, 3)

	window, err := store.Query(QueryOptions{Since: base.Add(time.Second), Until: base.Add(2 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	page, err := store.Query(QueryOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "item.shared", page[0].Kind)

	tail, err := store.Query(QueryOptions{Offset: 3})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "alice", tail[0].Actor)
}

func TestStore_GetByID(t *testing.T) {
	store := newStore(t)
	entry, err := store.Append("item.minted", "alice", "alice-1", testutil.Epoch, nil)
	require.NoError(t, err)

	got, err := store.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Hash, got.Hash)
	assert.Equal(t, entry.Seq, got.Seq)

	_, err = store.GetByID("missing")
	require.ErrorIs(t, err, core.ErrEntryNotFound)
}

func TestStore_GetSummary(t *testing.T) {
	store := newStore(t)

	empty, err := store.GetSummary()
	require.NoError(t, err)
	assert.Zero(t, empty.TotalEntries)
	assert.Nil(t, empty.FirstEntry)
	assert.True(t, empty.ChainValid)

	_, err = store.Append("item.minted", "alice", "", testutil.Epoch, nil)
	require.NoError(t, err)
	_, err = store.Append("item.minted", "bob", "", testutil.Epoch.Add(time.Minute), nil)
	require.NoError(t, err)
	_, err = store.Append("tokens.staked", "bob", "", testutil.Epoch.Add(2*time.Minute), nil)
	require.NoError(t, err)

	summary, err := store.GetSummary()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalEntries)
	assert.Equal(t, 2, summary.ByKind["item.minted"])
	assert.Equal(t, 1, summary.ByKind["tokens.staked"])
	require.NotNil(t, summary.FirstEntry)
	assert.True(t, summary.FirstEntry.Equal(testutil.Epoch))
	assert.True(t, summary.LastEntry.Equal(testutil.Epoch.Add(2*time.Minute)))
	assert.True(t, summary.ChainValid)
}

func TestStore_Close(t *testing.T) {
	store := newStore(t)
	store.Close()

	_, err := store.Append("item.minted", "alice", "", testutil.Epoch, nil)
	require.ErrorIs(t, err, core.ErrJournalClosed)
}

func TestRecorder_Observe(t *testing.T) {
	store := newStore(t)
	rec := NewRecorder(store, logging.Nop())

	rec.Observe(core.Event{
		Kind:          core.EventItemLiked,
		Actor:         "bob",
		At:            testutil.Epoch,
		ItemID:        "alice-1",
		Creator:       "alice",
		ActorReward:   1,
		CreatorReward: 2,
		Count:         1,
	})

	entries, err := store.Query(QueryOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "item.liked", entries[0].Kind)
	assert.Equal(t, "alice-1", entries[0].ItemID)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entries[0].Details), &details))
	assert.Equal(t, "alice", details["creator"])
	assert.EqualValues(t, 2, details["creator_reward"])
	assert.NotContains(t, details, "debited")
}

func TestRecorder_ObserveLogsFailure(t *testing.T) {
	store := newStore(t)
	store.Close()

	var buf bytes.Buffer
	rec := NewRecorder(store, logging.New(&buf, logging.DEBUG, logging.FormatJSON))
	rec.Observe(core.Event{Kind: core.EventItemMinted, Actor: "alice", At: testutil.Epoch})

	assert.Contains(t, buf.String(), "journal append failed")
	assert.Contains(t, buf.String(), core.ErrJournalClosed.Error())
}
