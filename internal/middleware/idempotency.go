package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyTTL          = 24 * time.Hour

	// idempotencyPendingTTL bounds how long a crashed request blocks its key.
	idempotencyPendingTTL = 30 * time.Second
	idempotencyPending    = "pending"
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a mutating request
// repeats an Idempotency-Key. The key is claimed with a pending marker before
// the handler runs, so a concurrent duplicate gets 409 instead of running
// twice. Keys are scoped to the authenticated user and route, so it must run
// after AuthMiddleware. Redis failures degrade to normal processing.
func IdempotencyMiddleware(redisClient *redis.Client, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		// Only apply to mutating methods.
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(UserID(c), c.Request.Method, c.FullPath(), key)

		claimed, err := redisClient.SetNX(ctx, cacheKey, idempotencyPending, idempotencyPendingTTL).Result()
		if err != nil {
			logger.WithError(err).Warn("idempotency claim failed")
			c.Next()
			return
		}

		if !claimed {
			cached, err := getCachedResponse(ctx, redisClient, cacheKey)
			if err != nil && !errors.Is(err, redis.Nil) {
				logger.WithError(err).Warn("idempotency lookup failed")
				c.Next()
				return
			}
			if cached == nil {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this Idempotency-Key is already in progress"})
				return
			}

			for k, v := range cached.Headers {
				for _, val := range v {
					c.Header(k, val)
				}
			}
			c.Header(idempotencyReplayHeader, "true")
			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}

		// Wrap response writer to capture response.
		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		storeCtx := context.WithoutCancel(ctx)

		// Server errors are not cached so the client can retry.
		if c.Writer.Status() >= 500 {
			if err := redisClient.Del(storeCtx, cacheKey).Err(); err != nil {
				logger.WithError(err).Warn("idempotency release failed")
			}
			return
		}

		response := cachedResponse{
			StatusCode: c.Writer.Status(),
			Body:       w.body.Bytes(),
			Headers:    extractResponseHeaders(c),
		}
		if err := setCachedResponse(storeCtx, redisClient, cacheKey, &response, idempotencyTTL); err != nil {
			logger.WithError(err).Warn("idempotency store failed")
		}
	}
}

func idempotencyCacheKey(userID, method, route, key string) string {
	return "idempotency:" + userID + ":" + method + ":" + route + ":" + key
}

// getCachedResponse retrieves a cached response from Redis. It returns nil
// while the key is still pending.
func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == idempotencyPending {
		return nil, nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
