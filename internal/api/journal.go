package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/journal"
)

// defaultJournalLimit applies when a listing names no limit
const defaultJournalLimit = 100

// JournalAPI provides read-only access to the audit journal
type JournalAPI struct {
	store  *journal.Store
	server *Server
}

// NewJournalAPI creates a new journal API
func NewJournalAPI(store *journal.Store, s *Server) *JournalAPI {
	return &JournalAPI{store: store, server: s}
}

// RegisterRoutes registers journal API routes (all read-only)
func (api *JournalAPI) RegisterRoutes(r chi.Router) {
	r.Route("/journal", func(r chi.Router) {
		r.Get("/", api.handleListEntries)        // GET /api/v1/journal
		r.Get("/summary", api.handleGetSummary)  // GET /api/v1/journal/summary
		r.Get("/verify", api.handleVerifyChain)  // GET /api/v1/journal/verify
		r.Get("/entry/{id}", api.handleGetEntry) // GET /api/v1/journal/entry/{id}
	})
}

// handleListEntries returns journal entries with optional filtering
// GET /api/v1/journal?kind=&actor=&item_id=&since=&until=&limit=&offset=
func (api *JournalAPI) handleListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := journal.QueryOptions{
		Kind:   query.Get("kind"),
		Actor:  query.Get("actor"),
		ItemID: query.Get("item_id"),
		Limit:  defaultJournalLimit,
	}

	var err error
	if opts.Since, err = parseTime(query.Get("since")); err != nil {
		api.server.respondErr(w, fmt.Errorf("since: %w", err))
		return
	}
	if opts.Until, err = parseTime(query.Get("until")); err != nil {
		api.server.respondErr(w, fmt.Errorf("until: %w", err))
		return
	}
	if limit := query.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l <= 0 {
			api.server.respondErr(w, fmt.Errorf("limit %q: %w", limit, core.ErrInvalidInput))
			return
		}
		opts.Limit = l
	}
	if offset := query.Get("offset"); offset != "" {
		o, err := strconv.Atoi(offset)
		if err != nil || o < 0 {
			api.server.respondErr(w, fmt.Errorf("offset %q: %w", offset, core.ErrInvalidInput))
			return
		}
		opts.Offset = o
	}

	entries, err := api.store.Query(opts)
	if err != nil {
		api.server.respondErr(w, err)
		return
	}

	count, err := api.store.Count()
	if err != nil {
		api.server.respondErr(w, err)
		return
	}

	api.server.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries":       entries,
		"count":         len(entries),
		"total_entries": count,
		"limit":         opts.Limit,
		"offset":        opts.Offset,
	})
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not RFC 3339: %w", raw, core.ErrInvalidInput)
	}
	return t, nil
}

// handleGetSummary returns journal statistics
// GET /api/v1/journal/summary
func (api *JournalAPI) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := api.store.GetSummary()
	if err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusOK, summary)
}

// handleVerifyChain verifies the integrity of the journal chain
// GET /api/v1/journal/verify
func (api *JournalAPI) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	err := api.store.Verify()

	result := map[string]interface{}{
		"chain_valid": err == nil,
		"verified_at": time.Now().UTC(),
	}

	if err != nil {
		result["error"] = err.Error()
		var chainErr *journal.ChainError
		if errors.As(err, &chainErr) {
			result["error_type"] = chainErr.Type
			result["entry_num"] = chainErr.EntryNum
			result["entry_id"] = chainErr.EntryID
			result["seq"] = chainErr.Seq
		}
	}

	count, _ := api.store.Count()
	result["total_entries"] = count

	api.server.respondJSON(w, http.StatusOK, result)
}

// handleGetEntry returns a single journal entry by ID
// GET /api/v1/journal/entry/{id}
func (api *JournalAPI) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		api.server.respondErr(w, fmt.Errorf("entry id %q: %w", raw, core.ErrInvalidInput))
		return
	}

	entry, err := api.store.GetByID(id)
	if err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusOK, entry)
}
