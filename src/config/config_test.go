package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "FRONTEND_BASE_URL", "STORE_BACKEND", "DATABASE_PATH",
		"MONGODB_URI", "MONGODB_DATABASE", "JWT_SECRET", "SANDBOX_ENABLED",
		"SANDBOX_CRON_SCHEDULE", "SANDBOX_RUN_ON_START", "SANDBOX_BACKFILL_COUNT",
		"SANDBOX_INCREMENT_COUNT", "SANDBOX_CARD_TIMEOUT", "SANDBOX_SEED",
		"CACHE_EXPIRATION", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, StoreSQLite, cfg.StoreBackend)
	require.Equal(t, "*/30 * * * *", cfg.SandboxCronSchedule)
	require.True(t, cfg.SandboxEnabled)
	require.True(t, cfg.SandboxRunOnStart)
	require.Equal(t, 200, cfg.SandboxBackfillCount)
	require.Equal(t, 10, cfg.SandboxIncrementCount)
	require.Equal(t, 2*time.Minute, cfg.SandboxCardTimeout)
	require.Equal(t, 15*time.Minute, cfg.CacheExpiration)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SANDBOX_CRON_SCHEDULE", "*/5 * * * *")
	t.Setenv("SANDBOX_BACKFILL_COUNT", "50")
	t.Setenv("SANDBOX_RUN_ON_START", "false")
	t.Setenv("SANDBOX_CARD_TIMEOUT", "10s")
	t.Setenv("SANDBOX_SEED", "1234")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "*/5 * * * *", cfg.SandboxCronSchedule)
	require.Equal(t, 50, cfg.SandboxBackfillCount)
	require.False(t, cfg.SandboxRunOnStart)
	require.Equal(t, 10*time.Second, cfg.SandboxCardTimeout)
	require.Equal(t, uint64(1234), cfg.SandboxSeed)
	require.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SANDBOX_INCREMENT_COUNT", "ten")
	t.Setenv("SANDBOX_CARD_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 10, cfg.SandboxIncrementCount)
	require.Equal(t, 2*time.Minute, cfg.SandboxCardTimeout)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "  ")
	_, err := Load()
	require.ErrorIs(t, err, ErrMissingRequired)
}

func TestLoadMongoRequiresURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err := Load()
	require.ErrorIs(t, err, ErrMissingRequired)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNegativeBatch(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SANDBOX_BACKFILL_COUNT", "-1")
	_, err := Load()
	require.Error(t, err)
}
