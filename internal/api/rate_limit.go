package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware caps the whole surface with a shared token bucket.
// Per-account throttling (OTP cooldowns, lockouts) lives in the auth service;
// this is a coarse outer guard against request floods.
func RateLimitMiddleware(rps int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"message": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
