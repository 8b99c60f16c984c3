package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/rewards"
	"github.com/vibeforge/vibeforge/internal/testutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, ".vibeforge", filepath.Base(cfg.DataDir))
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, string(core.AnonymousIdentity), cfg.Economy.AnonymousIdentity)
	assert.Equal(t, rewards.Default(), cfg.Economy.Policy())
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(testutil.TempDir(t), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090, "host": "0.0.0.0"},
		"economy": {"mint_cost": 7},
		"logging": {"level": "debug"}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, uint64(7), cfg.Economy.MintCost)
	assert.Equal(t, uint64(100), cfg.Economy.InitialBalance, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
  allowed_origins:
    - https://vibeforge.example
economy:
  like_reward_creator: 4
  share_creator_reputation: 0.25
journal:
  in_memory: true
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://vibeforge.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, uint64(4), cfg.Economy.LikeRewardCreator)
	assert.InDelta(t, 0.25, cfg.Economy.ShareCreatorReputation, 1e-6)
	assert.True(t, cfg.Journal.InMemory)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0600))

	testutil.SetEnv(t, "VIBEFORGE_SERVER_PORT", "6060")
	testutil.SetEnv(t, "VIBEFORGE_ECONOMY_STAKING_REWARD", "9")
	testutil.SetEnv(t, "VIBEFORGE_ECONOMY_LIKE_ACTOR_REPUTATION", "0.5")
	testutil.SetEnv(t, "VIBEFORGE_JOURNAL_IN_MEMORY", "true")
	testutil.SetEnv(t, "VIBEFORGE_LOGGING_FORMAT", "json")
	testutil.SetEnv(t, "VIBEFORGE_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port, "env wins over file")
	assert.Equal(t, uint64(9), cfg.Economy.StakingReward)
	assert.InDelta(t, 0.5, cfg.Economy.LikeActorReputation, 1e-6)
	assert.True(t, cfg.Journal.InMemory)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_DataDirFromEnv(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.SetEnv(t, "VIBEFORGE_DATA_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 5050\n"), 0600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 5050, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.JournalPath())
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	testutil.SetEnv(t, "VIBEFORGE_SERVER_PORT", "not-a-number")

	_, err := Load(filepath.Join(testutil.TempDir(t), "config.yaml"))
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(testutil.TempDir(t), "nested", name)

			cfg := Default()
			cfg.Server.Port = 4242
			cfg.Economy.MintCost = 11
			require.NoError(t, cfg.Save(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 4242, loaded.Server.Port)
			assert.Equal(t, uint64(11), loaded.Economy.MintCost)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, core.ErrInvalidInput},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, core.ErrInvalidInput},
		{"negative burst", func(c *Config) { c.Server.RateLimitBurst = -1 }, core.ErrInvalidInput},
		{"empty anonymous", func(c *Config) { c.Economy.AnonymousIdentity = " " }, core.ErrMissingRequired},
		{"negative reputation delta", func(c *Config) { c.Economy.ShareActorReputation = -0.1 }, core.ErrInvalidInput},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, core.ErrInvalidInput},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, core.ErrInvalidInput},
		{"no journal path", func(c *Config) { c.DataDir = ""; c.Journal.Path = "" }, core.ErrMissingRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
