package config_test

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/GateWise/server/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("GATEWISE_ENV", "")
	t.Setenv("GATEWISE_RING_CAPACITY", "")
	cfg := config.FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":5005", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.RingCapacity)
	assert.Equal(t, 4096, cfg.MaxPayloadBytes)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.AuditBackend)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GATEWISE_ENV", "PROD")
	t.Setenv("GATEWISE_RING_CAPACITY", "25")
	t.Setenv("GATEWISE_READ_TIMEOUT", "750ms")
	t.Setenv("GATEWISE_REQUIRE_SNAPSHOT", "1")
	t.Setenv("GATEWISE_AUDIT_BACKEND", "JSONL")
	cfg := config.FromEnv()

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 25, cfg.RingCapacity)
	assert.Equal(t, 750*time.Millisecond, cfg.ReadTimeout)
	assert.True(t, cfg.RequireSnapshot)
	assert.Equal(t, "jsonl", cfg.AuditBackend)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("GATEWISE_ENV", "staging")
	t.Setenv("GATEWISE_RING_CAPACITY", "-3")
	t.Setenv("GATEWISE_READ_TIMEOUT", "soon")
	cfg := config.FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 100, cfg.RingCapacity)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	t.Setenv("GATEWISE_LISTEN_ADDR", ":6000")
	cfg := config.FromEnv()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--ring=10", "--door=lobby"}))

	assert.Equal(t, ":6000", cfg.ListenAddr, "unset flag keeps env value")
	assert.Equal(t, 10, cfg.RingCapacity)
	assert.Equal(t, "lobby", cfg.DoorName)
}
