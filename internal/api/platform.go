package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/platform"
)

// PlatformAPI exposes the platform operations over HTTP
type PlatformAPI struct {
	platform *platform.Platform
	server   *Server
}

// NewPlatformAPI creates the platform handlers
func NewPlatformAPI(p *platform.Platform, s *Server) *PlatformAPI {
	return &PlatformAPI{platform: p, server: s}
}

// RegisterRoutes registers platform routes
func (api *PlatformAPI) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", api.handleMint)                // POST /api/v1/items
		r.Get("/mine", api.handleListMine)         // GET /api/v1/items/mine
		r.Get("/{itemID}/stats", api.handleStats)  // GET /api/v1/items/{id}/stats
		r.Post("/{itemID}/like", api.handleLike)   // POST /api/v1/items/{id}/like
		r.Post("/{itemID}/share", api.handleShare) // POST /api/v1/items/{id}/share
	})

	r.Route("/account", func(r chi.Router) {
		r.Get("/balance", api.handleBalance)       // GET /api/v1/account/balance
		r.Get("/reputation", api.handleReputation) // GET /api/v1/account/reputation
		r.Post("/reset", api.handleReset)          // POST /api/v1/account/reset
	})

	r.Route("/staking", func(r chi.Router) {
		r.Post("/stake", api.handleStake) // POST /api/v1/staking/stake
		r.Post("/claim", api.handleClaim) // POST /api/v1/staking/claim
	})

	r.Get("/leaderboard", api.handleLeaderboard) // GET /api/v1/leaderboard
}

// MintRequest is the body of POST /items
type MintRequest struct {
	Content string `json:"content"`
}

// MintResponse is returned by POST /items
type MintResponse struct {
	ItemID core.ItemID `json:"item_id"`
}

// EngagementResponse is returned by like and share
type EngagementResponse struct {
	ItemID core.ItemID         `json:"item_id"`
	Kind   core.EngagementKind `json:"kind"`
	Count  uint64              `json:"count"`
}

// BalanceResponse reports a token balance
type BalanceResponse struct {
	Identity core.Identity `json:"identity"`
	Balance  uint64        `json:"balance"`
}

// ReputationResponse reports a reputation score
type ReputationResponse struct {
	Identity   core.Identity `json:"identity"`
	Reputation float32       `json:"reputation"`
}

// StakeRequest is the body of POST /staking/stake
type StakeRequest struct {
	Amount *uint64 `json:"amount"`
}

// StakingResponse is returned by stake and claim
type StakingResponse struct {
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}

func (api *PlatformAPI) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := api.server.decodeJSON(w, r, &req); err != nil {
		api.server.respondErr(w, err)
		return
	}

	id, err := api.platform.Mint(r.Context(), req.Content)
	if err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusCreated, MintResponse{ItemID: id})
}

func (api *PlatformAPI) handleListMine(w http.ResponseWriter, r *http.Request) {
	items := api.platform.ListMyItems(r.Context())
	if items == nil {
		items = []core.Item{}
	}
	api.server.respondJSON(w, http.StatusOK, items)
}

// itemParam returns the decoded item id. Ids embed the creator identity,
// which may contain characters that arrive percent-encoded.
func itemParam(r *http.Request) (core.ItemID, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("item id %q: %w", raw, core.ErrInvalidInput)
	}
	return core.ItemID(id), nil
}

func (api *PlatformAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	id, err := itemParam(r)
	if err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusOK, api.platform.ItemStats(id))
}

func (api *PlatformAPI) handleLike(w http.ResponseWriter, r *http.Request) {
	api.engage(w, r, core.EngagementLike)
}

func (api *PlatformAPI) handleShare(w http.ResponseWriter, r *http.Request) {
	api.engage(w, r, core.EngagementShare)
}

func (api *PlatformAPI) engage(w http.ResponseWriter, r *http.Request, kind core.EngagementKind) {
	id, err := itemParam(r)
	if err != nil {
		api.server.respondErr(w, err)
		return
	}

	var count uint64
	if kind == core.EngagementShare {
		count, err = api.platform.Share(r.Context(), id)
	} else {
		count, err = api.platform.Like(r.Context(), id)
	}
	if err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusOK, EngagementResponse{ItemID: id, Kind: kind, Count: count})
}

func (api *PlatformAPI) handleBalance(w http.ResponseWriter, r *http.Request) {
	api.server.respondJSON(w, http.StatusOK, BalanceResponse{
		Identity: api.server.caller(r),
		Balance:  api.platform.MyBalance(r.Context()),
	})
}

func (api *PlatformAPI) handleReputation(w http.ResponseWriter, r *http.Request) {
	api.server.respondJSON(w, http.StatusOK, ReputationResponse{
		Identity:   api.server.caller(r),
		Reputation: api.platform.MyReputation(r.Context()),
	})
}

func (api *PlatformAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	api.platform.ResetAccount(r.Context())
	api.server.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (api *PlatformAPI) handleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := api.server.decodeJSON(w, r, &req); err != nil {
		api.server.respondErr(w, err)
		return
	}
	if req.Amount == nil {
		api.server.respondErr(w, fmt.Errorf("amount: %w", core.ErrMissingRequired))
		return
	}

	if err := api.platform.Stake(r.Context(), *req.Amount); err != nil {
		api.server.respondErr(w, err)
		return
	}
	api.server.respondJSON(w, http.StatusOK, StakingResponse{
		Amount:  *req.Amount,
		Balance: api.platform.MyBalance(r.Context()),
	})
}

func (api *PlatformAPI) handleClaim(w http.ResponseWriter, r *http.Request) {
	reward := api.platform.ClaimStakingRewards(r.Context())
	api.server.respondJSON(w, http.StatusOK, StakingResponse{
		Amount:  reward,
		Balance: api.platform.MyBalance(r.Context()),
	})
}

func (api *PlatformAPI) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	api.server.respondJSON(w, http.StatusOK, api.platform.Leaderboard())
}
