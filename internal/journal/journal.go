// Package journal provides a verifiable, append-only audit log of accepted
// platform mutations. Every entry is hash-chained to the previous entry,
// making any tampering detectable.
//
// The journal is an audit trail only; platform state is never rebuilt from it.
package journal

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Genesis is the prev_hash of the first entry
const Genesis = "GENESIS:0000000000000000000000000000000000000000000000000000000000000000"

// Store manages the append-only journal table
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

// NewStore creates a journal store on a migrated database
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Entry represents an immutable journal entry
type Entry struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "item.minted", "item.liked", ...
	Actor     string    `json:"actor"`
	ItemID    string    `json:"item_id,omitempty"`
	Details   string    `json:"details,omitempty"` // JSON blob
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Append adds a new entry with hash chaining. at is the time of the
// mutation; the zero time means now.
func (s *Store) Append(kind, actor, itemID string, at time.Time, details interface{}) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, core.ErrJournalClosed
	}

	var detailsJSON string
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		detailsJSON = string(data)
	}

	prevHash, err := s.lastHash()
	if err != nil {
		return nil, fmt.Errorf("get last hash: %w", err)
	}

	if at.IsZero() {
		at = s.now()
	}
	entry := &Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Unix(0, at.UnixNano()).UTC(),
		Kind:      kind,
		Actor:     actor,
		ItemID:    itemID,
		Details:   detailsJSON,
		PrevHash:  prevHash,
	}
	entry.Hash = computeHash(entry)

	res, err := s.db.Exec(`
		INSERT INTO journal (id, timestamp, kind, actor, item_id, details, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.UnixNano(), entry.Kind, entry.Actor, entry.ItemID,
		entry.Details, entry.PrevHash, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	if entry.Seq, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("read journal seq: %w", err)
	}

	return entry, nil
}

// Close rejects further appends. The database is owned by the caller.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) lastHash() (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM journal ORDER BY seq DESC LIMIT 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Genesis, nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// computeHash creates the SHA-256 hash of an entry's canonical representation
func computeHash(entry *Entry) string {
	canonical := struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
		Kind      string `json:"kind"`
		Actor     string `json:"actor"`
		ItemID    string `json:"item_id"`
		Details   string `json:"details"`
		PrevHash  string `json:"prev_hash"`
	}{
		ID:        entry.ID,
		Timestamp: entry.Timestamp.UnixNano(),
		Kind:      entry.Kind,
		Actor:     entry.Actor,
		ItemID:    entry.ItemID,
		Details:   entry.Details,
		PrevHash:  entry.PrevHash,
	}

	data, _ := json.Marshal(canonical)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

const selectColumns = `SELECT seq, id, timestamp, kind, actor, item_id, details, prev_hash, hash FROM journal`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var entry Entry
	var nanos int64
	var itemID, details sql.NullString

	if err := row.Scan(
		&entry.Seq, &entry.ID, &nanos, &entry.Kind, &entry.Actor,
		&itemID, &details, &entry.PrevHash, &entry.Hash,
	); err != nil {
		return nil, err
	}

	entry.Timestamp = time.Unix(0, nanos).UTC()
	entry.ItemID = itemID.String
	entry.Details = details.String
	return &entry, nil
}

// Verify walks the journal in seq order and recomputes every link.
// It returns nil for an intact chain, or a *ChainError for the first bad entry.
func (s *Store) Verify() error {
	rows, err := s.db.Query(selectColumns + ` ORDER BY seq ASC`)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	prev := Genesis
	for pos := 1; rows.Next(); pos++ {
		entry, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan entry %d: %w", pos, err)
		}
		if bad := checkLink(pos, entry, prev); bad != nil {
			return bad
		}
		prev = entry.Hash
	}

	return rows.Err()
}

// checkLink reports whether entry, found at position pos, points at prev
// and still hashes to its stored value
func checkLink(pos int, entry *Entry, prev string) *ChainError {
	bad := &ChainError{EntryNum: pos, EntryID: entry.ID, Seq: entry.Seq, Kind: entry.Kind}
	if entry.PrevHash != prev {
		bad.Type = ChainBroken
		bad.ExpectedHash, bad.ActualHash = prev, entry.PrevHash
		return bad
	}
	if sum := computeHash(entry); sum != entry.Hash {
		bad.Type = HashMismatch
		bad.ExpectedHash, bad.ActualHash = sum, entry.Hash
		return bad
	}
	return nil
}

// Chain error types
const (
	ChainBroken  = "chain_broken"  // an entry is missing or reordered
	HashMismatch = "hash_mismatch" // an entry was edited in place
)

// ChainError locates the first journal entry that fails verification
type ChainError struct {
	Type     string // ChainBroken or HashMismatch
	EntryNum int    // 1-based position in seq order
	EntryID  string
	Seq      int64
	Kind     string

	ExpectedHash string
	ActualHash   string
}

func (e *ChainError) Error() string {
	if e.Type == ChainBroken {
		return fmt.Sprintf("journal entry %d (seq %d, %s) does not follow its predecessor: links to %s, predecessor is %s",
			e.EntryNum, e.Seq, e.Kind, short(e.ActualHash), short(e.ExpectedHash))
	}
	return fmt.Sprintf("journal entry %d (seq %d, %s) was altered: stored hash %s, recomputed %s",
		e.EntryNum, e.Seq, e.Kind, short(e.ActualHash), short(e.ExpectedHash))
}

func short(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}

// QueryOptions filters journal listings
type QueryOptions struct {
	Kind   string    // Filter by event kind
	Actor  string    // Filter by actor
	ItemID string    // Filter by item
	Since  time.Time // Entries at or after this time
	Until  time.Time // Entries at or before this time
	Limit  int       // Maximum entries to return
	Offset int       // Skip first N entries
}

// Query returns entries matching the given criteria, newest first
func (s *Store) Query(opts QueryOptions) ([]*Entry, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []interface{}

	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if opts.Actor != "" {
		query += " AND actor = ?"
		args = append(args, opts.Actor)
	}
	if opts.ItemID != "" {
		query += " AND item_id = ?"
		args = append(args, opts.ItemID)
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since.UnixNano())
	}
	if !opts.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until.UnixNano())
	}

	query += " ORDER BY seq DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetByID returns a single entry by ID
func (s *Store) GetByID(id string) (*Entry, error) {
	entry, err := scanEntry(s.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journal entry %s: %w", id, core.ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return entry, nil
}

// Count returns the total number of entries
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&count)
	return count, err
}

// Summary statistics
type Summary struct {
	TotalEntries int            `json:"total_entries"`
	FirstEntry   *time.Time     `json:"first_entry,omitempty"`
	LastEntry    *time.Time     `json:"last_entry,omitempty"`
	ByKind       map[string]int `json:"by_kind"`
	ChainValid   bool           `json:"chain_valid"`
	ChainError   string         `json:"chain_error,omitempty"`
}

// GetSummary returns statistics about the journal
func (s *Store) GetSummary() (*Summary, error) {
	summary := &Summary{
		ByKind: make(map[string]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&summary.TotalEntries); err != nil {
		return nil, err
	}

	if summary.TotalEntries > 0 {
		var first, last int64
		if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM journal").Scan(&first, &last); err != nil {
			return nil, err
		}
		firstTime := time.Unix(0, first).UTC()
		lastTime := time.Unix(0, last).UTC()
		summary.FirstEntry = &firstTime
		summary.LastEntry = &lastTime
	}

	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM journal GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		summary.ByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.Verify(); err != nil {
		summary.ChainError = err.Error()
	} else {
		summary.ChainValid = true
	}

	return summary, nil
}
