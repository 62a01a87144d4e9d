package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "computor", cfg.Cache.Prefix)
	assert.Equal(t, 300*time.Second, cfg.Cache.StudentTTL)
	assert.Equal(t, 180*time.Second, cfg.Cache.TutorTTL)
	assert.Equal(t, 300*time.Second, cfg.Cache.LecturerTTL)
	assert.Equal(t, 1800*time.Second, cfg.Cache.GradingTTL)
	assert.True(t, cfg.Features.EnableCaching)
	assert.False(t, cfg.Features.AutoMigrate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/computor_test")
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("CACHE_STUDENT_TTL", "2m")
	t.Setenv("ENABLE_CACHING", "false")
	t.Setenv("DATABASE_MAX_CONNS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/computor_test", cfg.Database.URL)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Cache.StudentTTL)
	assert.False(t, cfg.Features.EnableCaching)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)

	// Untouched values keep their defaults.
	assert.Equal(t, "computor", cfg.Cache.Prefix)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/computor_test")
	t.Setenv("ENVIRONMENT", "testing")

	_, err := Load()
	assert.Error(t, err)
}
