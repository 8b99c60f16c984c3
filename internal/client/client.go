// Package client talks to a running VibeForge server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vibeforge/vibeforge/internal/api"
	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/journal"
)

// Client is an HTTP client for one caller identity
type Client struct {
	baseURL string
	caller  core.Identity
	client  *http.Client
}

// Config for the client
type Config struct {
	BaseURL string        // Server URL, default "http://localhost:8080"
	Caller  core.Identity // Sent as X-Caller-Identity; empty means anonymous
	Timeout time.Duration // Request timeout
}

// DefaultConfig returns defaults, reading VIBEFORGE_URL and VIBEFORGE_CALLER if set
func DefaultConfig() Config {
	baseURL := os.Getenv("VIBEFORGE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return Config{
		BaseURL: baseURL,
		Caller:  core.Identity(os.Getenv("VIBEFORGE_CALLER")),
		Timeout: 10 * time.Second,
	}
}

// New creates a client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		caller:  cfg.Caller,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status code back to the domain error it came from
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusPaymentRequired:
		return core.ErrInsufficientFunds
	case http.StatusNotFound:
		return core.ErrItemNotFound
	case http.StatusBadRequest:
		return core.ErrInvalidInput
	default:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.caller != "" {
		req.Header.Set(api.CallerHeader, string(c.caller))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func itemPath(id core.ItemID, action string) string {
	return "/api/v1/items/" + url.PathEscape(string(id)) + "/" + action
}

// Mint creates an item and returns its ID
func (c *Client) Mint(ctx context.Context, content string) (core.ItemID, error) {
	var resp api.MintResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/items", api.MintRequest{Content: content}, &resp); err != nil {
		return "", err
	}
	return resp.ItemID, nil
}

// ListMyItems returns the caller's items
func (c *Client) ListMyItems(ctx context.Context) ([]core.Item, error) {
	var items []core.Item
	err := c.do(ctx, http.MethodGet, "/api/v1/items/mine", nil, &items)
	return items, err
}

// ItemStats returns the engagement counts of an item
func (c *Client) ItemStats(ctx context.Context, id core.ItemID) (core.InteractionStats, error) {
	var stats core.InteractionStats
	err := c.do(ctx, http.MethodGet, itemPath(id, "stats"), nil, &stats)
	return stats, err
}

// Like likes an item and returns its like count
func (c *Client) Like(ctx context.Context, id core.ItemID) (uint64, error) {
	var resp api.EngagementResponse
	if err := c.do(ctx, http.MethodPost, itemPath(id, "like"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Share shares an item and returns its share count
func (c *Client) Share(ctx context.Context, id core.ItemID) (uint64, error) {
	var resp api.EngagementResponse
	if err := c.do(ctx, http.MethodPost, itemPath(id, "share"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Balance returns the caller's token balance
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	var resp api.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/account/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// Reputation returns the caller's reputation
func (c *Client) Reputation(ctx context.Context) (float32, error) {
	var resp api.ReputationResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/account/reputation", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Reputation, nil
}

// ResetAccount resets the caller's balance, reputation and items
func (c *Client) ResetAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/account/reset", nil, nil)
}

// Stake moves amount out of the caller's balance
func (c *Client) Stake(ctx context.Context, amount uint64) (api.StakingResponse, error) {
	var resp api.StakingResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/staking/stake", api.StakeRequest{Amount: &amount}, &resp)
	return resp, err
}

// ClaimStakingRewards credits the staking reward to the caller
func (c *Client) ClaimStakingRewards(ctx context.Context) (api.StakingResponse, error) {
	var resp api.StakingResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/staking/claim", nil, &resp)
	return resp, err
}

// Leaderboard returns the current top-N views
func (c *Client) Leaderboard(ctx context.Context) (core.Leaderboard, error) {
	var board core.Leaderboard
	err := c.do(ctx, http.MethodGet, "/api/v1/leaderboard", nil, &board)
	return board, err
}

// JournalPage is one listing of the audit journal
type JournalPage struct {
	Entries      []*journal.Entry `json:"entries"`
	Count        int              `json:"count"`
	TotalEntries int              `json:"total_entries"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

// Journal lists audit entries, newest first
func (c *Client) Journal(ctx context.Context, opts journal.QueryOptions) (*JournalPage, error) {
	q := url.Values{}
	if opts.Kind != "" {
		q.Set("kind", opts.Kind)
	}
	if opts.Actor != "" {
		q.Set("actor", opts.Actor)
	}
	if opts.ItemID != "" {
		q.Set("item_id", opts.ItemID)
	}
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		q.Set("until", opts.Until.Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/journal"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page JournalPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// VerifyJournal asks the server to check the journal hash chain
func (c *Client) VerifyJournal(ctx context.Context) (bool, string, error) {
	var resp struct {
		ChainValid bool   `json:"chain_valid"`
		Error      string `json:"error"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/journal/verify", nil, &resp); err != nil {
		return false, "", err
	}
	return resp.ChainValid, resp.Error, nil
}

// Health returns the server liveness report
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var health map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &health)
	return health, err
}
