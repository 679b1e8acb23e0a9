package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter throttles per client IP with a fixed window counter in
// redis. Voucher codes are short enough to brute-force without it.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewRateLimiter(client *redis.Client, logger *zap.SugaredLogger) *RateLimiter {
	return &RateLimiter{redisClient: client, logger: logger}
}

func (rl *RateLimiter) Limit(keySuffix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("rate_limit:%s:%s", keySuffix, ip)

			count, err := rl.redisClient.Incr(r.Context(), key).Result()
			if err != nil {
				// fail open: redis being down must not block redemptions
				rl.logger.Warnw("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rl.redisClient.Expire(r.Context(), key, window)
			}

			if count > int64(limit) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"valid": false,
					"error": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
