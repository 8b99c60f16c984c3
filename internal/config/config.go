// Package config handles VibeForge configuration.
//
// Values are layered: built-in defaults, then the config file (JSON or
// YAML by extension), then VIBEFORGE_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/rewards"
)

// EnvPrefix is the prefix of all environment overrides
const EnvPrefix = "VIBEFORGE"

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir" yaml:"data_dir" split_words:"true"`

	Server  ServerConfig  `json:"server" yaml:"server"`
	Economy EconomyConfig `json:"economy" yaml:"economy"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port           int      `json:"port" yaml:"port" split_words:"true"`
	Host           string   `json:"host" yaml:"host" split_words:"true"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" split_words:"true"`

	// Per-caller token bucket; a zero rate disables limiting
	RateLimitRPS   float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" split_words:"true"`
	RateLimitBurst int     `json:"rate_limit_burst" yaml:"rate_limit_burst" split_words:"true"`
}

// EconomyConfig holds the reward policy and the anonymous identity
type EconomyConfig struct {
	AnonymousIdentity string `json:"anonymous_identity" yaml:"anonymous_identity" split_words:"true"`

	InitialBalance     uint64 `json:"initial_balance" yaml:"initial_balance" split_words:"true"`
	MintCost           uint64 `json:"mint_cost" yaml:"mint_cost" split_words:"true"`
	LikeRewardUser     uint64 `json:"like_reward_user" yaml:"like_reward_user" split_words:"true"`
	LikeRewardCreator  uint64 `json:"like_reward_creator" yaml:"like_reward_creator" split_words:"true"`
	ShareRewardUser    uint64 `json:"share_reward_user" yaml:"share_reward_user" split_words:"true"`
	ShareRewardCreator uint64 `json:"share_reward_creator" yaml:"share_reward_creator" split_words:"true"`
	StakingReward      uint64 `json:"staking_reward" yaml:"staking_reward" split_words:"true"`

	MintReputation         float32 `json:"mint_reputation" yaml:"mint_reputation" split_words:"true"`
	LikeActorReputation    float32 `json:"like_actor_reputation" yaml:"like_actor_reputation" split_words:"true"`
	LikeCreatorReputation  float32 `json:"like_creator_reputation" yaml:"like_creator_reputation" split_words:"true"`
	ShareActorReputation   float32 `json:"share_actor_reputation" yaml:"share_actor_reputation" split_words:"true"`
	ShareCreatorReputation float32 `json:"share_creator_reputation" yaml:"share_creator_reputation" split_words:"true"`
}

// JournalConfig for the audit journal
type JournalConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" split_words:"true"`
	InMemory bool   `json:"in_memory" yaml:"in_memory" split_words:"true"`
	Path     string `json:"path" yaml:"path" split_words:"true"` // defaults to <data_dir>/journal.db
}

// LoggingConfig for the process logger
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" split_words:"true"`
	Format string `json:"format" yaml:"format" split_words:"true"` // auto, json or console
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	p := rewards.Default()

	return &Config{
		DataDir: filepath.Join(home, ".vibeforge"),
		Server: ServerConfig{
			Port:           8080,
			Host:           "localhost",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Economy: EconomyConfig{
			AnonymousIdentity: string(core.AnonymousIdentity),

			InitialBalance:     p.InitialBalance,
			MintCost:           p.MintCost,
			LikeRewardUser:     p.LikeRewardUser,
			LikeRewardCreator:  p.LikeRewardCreator,
			ShareRewardUser:    p.ShareRewardUser,
			ShareRewardCreator: p.ShareRewardCreator,
			StakingReward:      p.StakingReward,

			MintReputation:         p.MintReputation,
			LikeActorReputation:    p.LikeActorReputation,
			LikeCreatorReputation:  p.LikeCreatorReputation,
			ShareActorReputation:   p.ShareActorReputation,
			ShareCreatorReputation: p.ShareCreatorReputation,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}
}

// DefaultPath returns the config file location inside the data directory
func (c *Config) DefaultPath() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// Load loads config from file, falling back to defaults, and applies
// environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	// The data dir may itself come from the environment
	if dir := os.Getenv(EnvPrefix + "_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if path == "" {
		path = cfg.DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Use defaults
	default:
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.DefaultPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := c.Marshal(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Marshal encodes the config in the format implied by path
func (c *Config) Marshal(path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", "  ")
}

// Validate rejects unusable configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range: %w", c.Server.Port, core.ErrInvalidInput)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("server rate limit must not be negative: %w", core.ErrInvalidInput)
	}
	if strings.TrimSpace(c.Economy.AnonymousIdentity) == "" {
		return fmt.Errorf("economy.anonymous_identity: %w", core.ErrMissingRequired)
	}
	if err := c.Economy.Policy().Validate(); err != nil {
		return fmt.Errorf("economy: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %v: %w", err, core.ErrInvalidInput)
	}
	switch c.Logging.Format {
	case "", logging.FormatAuto, logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("logging.format %q: %w", c.Logging.Format, core.ErrInvalidInput)
	}
	if c.Journal.Enabled && !c.Journal.InMemory && c.JournalPath() == "" {
		return fmt.Errorf("journal.path: %w", core.ErrMissingRequired)
	}
	return nil
}

// Policy converts the economy section to a reward policy
func (e EconomyConfig) Policy() rewards.Policy {
	return rewards.Policy{
		InitialBalance:     e.InitialBalance,
		MintCost:           e.MintCost,
		LikeRewardUser:     e.LikeRewardUser,
		LikeRewardCreator:  e.LikeRewardCreator,
		ShareRewardUser:    e.ShareRewardUser,
		ShareRewardCreator: e.ShareRewardCreator,
		StakingReward:      e.StakingReward,

		MintReputation:         e.MintReputation,
		LikeActorReputation:    e.LikeActorReputation,
		LikeCreatorReputation:  e.LikeCreatorReputation,
		ShareActorReputation:   e.ShareActorReputation,
		ShareCreatorReputation: e.ShareCreatorReputation,
	}
}

// JournalPath returns the journal database file
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "journal.db")
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
