package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "America/Sao_Paulo", cfg.Planner.TimeZone)
	assert.Equal(t, 100, cfg.Planner.InsertChunkSize)
	assert.Equal(t, 24*time.Hour, cfg.Planner.SummaryCacheTTL)
	assert.Equal(t, 0, cfg.Audit.DailyCeilingMinutes)
	assert.Equal(t, 7, cfg.Audit.GapWarningDays)
	assert.Equal(t, 14, cfg.Audit.GapCriticalDays)
	assert.Equal(t, 30, cfg.Audit.RelocationWindowDays)
	assert.True(t, cfg.Audit.AsyncEnabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "studyplan-api", cfg.Tracing.ServiceName)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PLANNER_INSERT_CHUNK_SIZE", 0)
	v.Set("AUDIT_WORKERS", -1)
	v.Set("AUDIT_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg := fromViper(v)

	assert.Equal(t, 100, cfg.Planner.InsertChunkSize)
	assert.Equal(t, 1, cfg.Audit.Workers)
	assert.Equal(t, time.Hour, cfg.Audit.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
