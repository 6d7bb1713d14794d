package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimiter counts requests per client IP in fixed one-minute windows.
type rateLimiter struct {
	max     int
	nowFunc func() time.Time

	mu      sync.Mutex
	window  time.Time
	counter map[string]int
}

func newRateLimiter(maxPerMinute int) *rateLimiter {
	return &rateLimiter{
		max:     maxPerMinute,
		nowFunc: time.Now,
		counter: make(map[string]int),
	}
}

// allow counts a request from ip and reports whether it is within the limit.
func (rl *rateLimiter) allow(ip string) bool {
	window := rl.nowFunc().Truncate(time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !window.Equal(rl.window) {
		rl.window = window
		rl.counter = make(map[string]int)
	}
	rl.counter[ip]++
	return rl.counter[ip] <= rl.max
}

func (rl *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if rl.max > 0 && !rl.allow(ctx.RealIP()) {
			return errTooManyRequests
		}
		return next(ctx)
	}
}
