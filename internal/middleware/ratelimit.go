// Package middleware provides HTTP middleware for Taskhub.
// ratelimit.go implements a rate limiter using a sliding window counter
// stored in memory. Designed for the credential endpoints: each client gets
// an independent budget per endpoint, so exhausting sign-in attempts does
// not lock the same IP out of password reset.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimitEntry tracks request counts for a single client+endpoint pair
// within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimit returns middleware that limits requests per client IP and route
// to maxRequests within the given window duration. Returns 429 when
// exceeded.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	entries := make(map[string]*rateLimitEntry)

	// Background cleanup of expired entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			now := time.Now()
			for key, entry := range entries {
				if now.Sub(entry.windowStart) > window*2 {
					delete(entries, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// c.Path() is the registered route pattern, so the same limiter
			// instance shared across routes still budgets them separately.
			key := c.RealIP() + " " + c.Path()
			now := time.Now()

			mu.Lock()
			entry, exists := entries[key]
			if !exists || now.Sub(entry.windowStart) > window {
				entries[key] = &rateLimitEntry{count: 1, windowStart: now}
				mu.Unlock()
				return next(c)
			}

			entry.count++
			if entry.count > maxRequests {
				mu.Unlock()
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}
			mu.Unlock()
			return next(c)
		}
	}
}
