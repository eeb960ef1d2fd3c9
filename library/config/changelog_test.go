package config

import (
	"testing"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/stretchr/testify/require"
)

func setConfig(t *testing.T, key string, val any) {
	t.Helper()
	prev := gconfig.Shared.Get(key)
	gconfig.Shared.Set(key, val)
	t.Cleanup(func() { gconfig.Shared.Set(key, prev) })
}

func TestTimezone(t *testing.T) {
	setConfig(t, "settings.changelog.timezone", "")
	require.Equal(t, "Asia/Kolkata", Timezone().String())

	setConfig(t, "settings.changelog.timezone", "UTC")
	require.Equal(t, "UTC", Timezone().String())

	setConfig(t, "settings.changelog.timezone", "Mars/Olympus")
	require.Equal(t, "Asia/Kolkata", Timezone().String())
}

func TestListConcurrency(t *testing.T) {
	setConfig(t, "settings.changelog.list_concurrency", 0)
	require.Equal(t, DefaultListConcurrency, ListConcurrency())

	setConfig(t, "settings.changelog.list_concurrency", 4)
	require.Equal(t, 4, ListConcurrency())
}

func TestMaxUploadBytes(t *testing.T) {
	setConfig(t, "settings.changelog.max_upload_mb", 0)
	require.Equal(t, int64(10<<20), MaxUploadBytes())

	setConfig(t, "settings.changelog.max_upload_mb", 2)
	require.Equal(t, int64(2<<20), MaxUploadBytes())
}

func TestAllowedOrigins(t *testing.T) {
	setConfig(t, "settings.web.cors.allowed_origins", nil)
	require.Equal(t, []string{"*"}, AllowedOrigins())

	setConfig(t, "settings.web.cors.allowed_origins", []string{" https://a.example ", ""})
	require.Equal(t, []string{"https://a.example"}, AllowedOrigins())
}

func TestWriteThrottle(t *testing.T) {
	setConfig(t, "settings.web.throttle.enabled", false)
	_, ok := WriteThrottle()
	require.False(t, ok)

	setConfig(t, "settings.web.throttle.enabled", true)
	setConfig(t, "settings.web.throttle.total_per_min", 0)
	setConfig(t, "settings.web.throttle.each_per_min", 6)
	setConfig(t, "settings.web.throttle.total_burst", 0)
	setConfig(t, "settings.web.throttle.each_burst", 2)
	cfg, ok := WriteThrottle()
	require.True(t, ok)
	require.InDelta(t, float64(DefaultThrottleTotalPerMin)/60, cfg.TotalPerSec, 1e-9)
	require.Equal(t, DefaultThrottleTotalPerMin, cfg.TotalBurst)
	require.InDelta(t, 0.1, cfg.EachPerSec, 1e-9)
	require.Equal(t, 2, cfg.EachBurst)
}
