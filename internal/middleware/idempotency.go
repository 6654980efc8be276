package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour
	inFlightTTL       = 30 * time.Second
)

// storedResponse is what a repeated request gets back.
type storedResponse struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint"`
}

// recorder tees the response body so it can be stored after the handler ran.
type recorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *recorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// replayBackend persists replayable responses and in-flight markers.
type replayBackend interface {
	load(ctx context.Context, key string) (*storedResponse, error)
	save(ctx context.Context, key string, resp storedResponse) error
	reserve(ctx context.Context, key string) (bool, error)
	release(ctx context.Context, key string)
}

// replayStore keeps responses and in-flight markers in Redis.
type replayStore struct {
	client *redis.Client
}

func (s replayStore) load(ctx context.Context, key string) (*storedResponse, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp storedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s replayStore) save(ctx context.Context, key string, resp storedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, idempotencyTTL).Err()
}

// reserve marks key as being processed. It reports false when another
// request with the same key holds the marker.
func (s replayStore) reserve(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, key+":inflight", 1, inFlightTTL).Result()
}

func (s replayStore) release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key+":inflight").Err(); err != nil {
		log.Printf("[IDEMPOTENCY] failed to release %s: %v", key, err)
	}
}

// IdempotencyMiddleware replays the stored response of a mutating request
// that repeats its Idempotency-Key. Keys are scoped to the caller and the
// concrete request path, so neither two riders nor two bookings collide.
// Reusing a key with a different body is rejected, as is a repeat that
// arrives while the first is still running. A nil client disables replay.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	if redisClient == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return idempotency(replayStore{client: redisClient})
}

func idempotency(store replayBackend) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, key)

		fingerprint, err := bodyFingerprint(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body", "code": "invalid_request"})
			return
		}

		stored, err := store.load(ctx, cacheKey)
		if err != nil {
			log.Printf("[IDEMPOTENCY] lookup of %s failed, processing without replay: %v", cacheKey, err)
			c.Next()
			return
		}
		if stored != nil {
			if stored.Fingerprint != fingerprint {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"error": "idempotency key was already used with a different request body",
					"code":  "idempotency_key_reused",
				})
				return
			}
			c.Header(replayedHeader, "true")
			c.Data(stored.StatusCode, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		reserved, err := store.reserve(ctx, cacheKey)
		if err != nil {
			log.Printf("[IDEMPOTENCY] reserve of %s failed, processing without replay: %v", cacheKey, err)
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this idempotency key is still being processed",
				"code":  "idempotency_in_progress",
			})
			return
		}
		defer store.release(ctx, cacheKey)

		w := &recorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// Server errors are not replayed; the client may retry them.
		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}
		if err := store.save(ctx, cacheKey, storedResponse{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			Fingerprint: fingerprint,
		}); err != nil {
			log.Printf("[IDEMPOTENCY] failed to store response for %s: %v", cacheKey, err)
		}
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

func idempotencyCacheKey(c *gin.Context, key string) string {
	caller := "anonymous"
	if actor, ok := ActorFrom(c); ok {
		caller = actor.ID
	}
	return "idempotency:" + caller + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

// bodyFingerprint hashes the request body and puts it back for the handler.
func bodyFingerprint(c *gin.Context) (string, error) {
	if c.Request.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
