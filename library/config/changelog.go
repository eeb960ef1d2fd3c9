package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/laisky-changelog/library/throttle"
)

const (
	// DefaultTimezone is the zone used to render and parse entry dates
	DefaultTimezone = "Asia/Kolkata"
	// DefaultListConcurrency bounds parallel entry fetches on the timeline path
	DefaultListConcurrency = 16
	// DefaultMaxUploadMB caps a single uploaded image
	DefaultMaxUploadMB = 10
	// DefaultThrottleTotalPerMin caps POST requests from everyone
	DefaultThrottleTotalPerMin = 60
	// DefaultThrottleEachPerMin caps POST requests from one client ip
	DefaultThrottleEachPerMin = 10
)

// Timezone returns the configured entry timezone.
//
// an unknown zone name falls back to DefaultTimezone.
func Timezone() *time.Location {
	name := strings.TrimSpace(gconfig.Shared.GetString("settings.changelog.timezone"))
	if name == "" {
		name = DefaultTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	if loc == nil {
		return time.UTC
	}

	return loc
}

// ListConcurrency returns the fetch parallelism for the timeline.
func ListConcurrency() int {
	if n := gconfig.Shared.GetInt("settings.changelog.list_concurrency"); n > 0 {
		return n
	}

	return DefaultListConcurrency
}

// MaxUploadBytes returns the per-image size limit in bytes.
func MaxUploadBytes() int64 {
	mb := gconfig.Shared.GetInt("settings.changelog.max_upload_mb")
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}

	return int64(mb) << 20
}

// AllowedOrigins returns the CORS allow list, "*" when unset.
func AllowedOrigins() []string {
	var origins []string
	for _, o := range gconfig.Shared.GetStringSlice("settings.web.cors.allowed_origins") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}

	return origins
}

// WriteThrottle returns the POST rate limit, ok is false when disabled.
//
// rates are configured per minute, bursts default to the per minute rate.
func WriteThrottle() (cfg throttle.Config, ok bool) {
	if !gconfig.Shared.GetBool("settings.web.throttle.enabled") {
		return cfg, false
	}

	totalPerMin := gconfig.Shared.GetInt("settings.web.throttle.total_per_min")
	if totalPerMin <= 0 {
		totalPerMin = DefaultThrottleTotalPerMin
	}
	eachPerMin := gconfig.Shared.GetInt("settings.web.throttle.each_per_min")
	if eachPerMin <= 0 {
		eachPerMin = DefaultThrottleEachPerMin
	}

	cfg = throttle.Config{
		TotalPerSec: float64(totalPerMin) / 60,
		TotalBurst:  totalPerMin,
		EachPerSec:  float64(eachPerMin) / 60,
		EachBurst:   eachPerMin,
	}
	if burst := gconfig.Shared.GetInt("settings.web.throttle.total_burst"); burst > 0 {
		cfg.TotalBurst = burst
	}
	if burst := gconfig.Shared.GetInt("settings.web.throttle.each_burst"); burst > 0 {
		cfg.EachBurst = burst
	}

	return cfg, true
}
