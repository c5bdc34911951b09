package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "grid", cfg.GameKind)
	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, 3, cfg.GridMaxMarks)
	assert.Equal(t, 2, cfg.TournamentMinParticipants)
	assert.Empty(t, cfg.RedisAddr, "redis stays optional")
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GAME_KIND", "paddle")
	t.Setenv("SIBLING_GAME_KIND", "grid")
	t.Setenv("MOVE_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "paddle", cfg.GameKind)
	assert.Equal(t, 5*time.Second, cfg.MoveTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown kind":    func(c *Config) { c.GameKind = "chess" },
		"same sibling":    func(c *Config) { c.SiblingKind = c.GameKind },
		"marks below row": func(c *Config) { c.GridMaxMarks = 2 },
		"board fills up":  func(c *Config) { c.GridMaxMarks = 5 },
		"zero cooldown":   func(c *Config) { c.Cooldown = 0 },
		"no participants": func(c *Config) { c.TournamentMinParticipants = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
