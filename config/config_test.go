package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "MONGO_DB", "DATA_STORE", "ACCESS_TTL_MINUTES", "MAX_UPLOAD_MB", "MINIO_USE_SSL"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "coros", cfg.MongoDB)
	assert.Equal(t, "mongo", cfg.DataStore)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.EqualValues(t, 20<<20, cfg.MaxUploadBytes)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATA_STORE", "Memory")
	t.Setenv("ACCESS_TTL_MINUTES", "15")
	t.Setenv("REFRESH_TTL_HOURS", "not-a-number")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DataStore)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.True(t, cfg.MinioUseSSL)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 5, ClampLimit(5, 20, 100))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
}
