// Package throttle limits how often callers may act, both overall and per key.
package throttle

import (
	"sync"

	"github.com/Laisky/errors/v2"
	"golang.org/x/time/rate"
)

const defaultMaxKeys = 10000

// Config configuration for Throttle
type Config struct {
	TotalPerSec float64
	TotalBurst  int
	EachPerSec  float64
	EachBurst   int
	// MaxKeys bounds the per key limiters kept in memory,
	// all of them are dropped when the bound is hit.
	MaxKeys int
}

// Throttle is a token bucket shared by everyone plus one bucket per key
type Throttle struct {
	sync.Mutex
	cfg   Config
	total *rate.Limiter
	each  map[string]*rate.Limiter
}

// New create new Throttle
func New(cfg Config) (*Throttle, error) {
	if cfg.TotalPerSec <= 0 || cfg.EachPerSec <= 0 {
		return nil, errors.New("per second rate must bigger than 0")
	}
	if cfg.TotalBurst < 1 || cfg.EachBurst < 1 {
		return nil, errors.New("burst must bigger than 0")
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}

	return &Throttle{
		cfg:   cfg,
		total: rate.NewLimiter(rate.Limit(cfg.TotalPerSec), cfg.TotalBurst),
		each:  make(map[string]*rate.Limiter),
	}, nil
}

// Allow reports whether key may act now.
// the shared bucket is only charged when the key's own bucket allows.
func (t *Throttle) Allow(key string) bool {
	t.Lock()
	lim, ok := t.each[key]
	if !ok {
		if len(t.each) >= t.cfg.MaxKeys {
			t.each = make(map[string]*rate.Limiter)
		}

		lim = rate.NewLimiter(rate.Limit(t.cfg.EachPerSec), t.cfg.EachBurst)
		t.each[key] = lim
	}
	t.Unlock()

	return lim.Allow() && t.total.Allow()
}

// Len returns the number of tracked keys
func (t *Throttle) Len() int {
	t.Lock()
	defer t.Unlock()
	return len(t.each)
}
