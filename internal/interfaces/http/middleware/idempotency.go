package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// Idempotency headers
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store  cache.ResponseStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency replays the stored response of a write request that is
// retried with the same Idempotency-Key. Keys are scoped per user, and a
// key reused with a different request is rejected. Failed 5xx responses
// are not stored so the client can retry them.
//
// Store errors never fail the request; the request is processed without
// replay protection instead.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || !isWriteMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithCode(c, dto.ErrCodeValidation, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				abortWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
				return
			}
			abortWithCode(c, dto.ErrCodeBadRequest, "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := context.WithoutCancel(c.Request.Context())
		log := logger.Enrich(ctx, cfg.Logger).With(zap.String("idempotency_key", key))
		storeKey := GetUserID(c) + ":" + key
		fingerprint := requestFingerprint(c.Request.Method, c.Request.URL.Path, body)

		reserved, err := cfg.Store.Reserve(ctx, storeKey, cache.Record{Pending: true, Fingerprint: fingerprint}, cfg.TTL)
		if err != nil {
			log.Warn("Idempotency store unavailable, processing without replay protection", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replayOrReject(c, cfg.Store, storeKey, fingerprint, log)
			return
		}

		defer func() {
			if r := recover(); r != nil {
				_ = cfg.Store.Release(ctx, storeKey)
				panic(r)
			}
		}()

		capture := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := capture.Status()
		if status >= http.StatusInternalServerError {
			if err := cfg.Store.Release(ctx, storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		rec := cache.Record{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: capture.Header().Get("Content-Type"),
			Body:        capture.body.Bytes(),
		}
		if err := cfg.Store.Put(ctx, storeKey, rec, cfg.TTL); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func replayOrReject(c *gin.Context, store cache.ResponseStore, storeKey, fingerprint string, log *zap.Logger) {
	rec, err := store.Get(c.Request.Context(), storeKey)
	if err != nil || rec == nil {
		// Expired between Reserve and Get, or the store failed.
		if err != nil {
			log.Warn("Failed to read idempotency record", zap.Error(err))
		}
		c.Next()
		return
	}

	switch {
	case rec.Fingerprint != fingerprint:
		abortWithCode(c, dto.ErrCodeIdempotencyMismatch, "Idempotency-Key was already used for a different request")
	case rec.Pending:
		abortWithCode(c, dto.ErrCodeIdempotencyInFlight, "A request with this Idempotency-Key is still being processed")
	default:
		log.Debug("Replaying idempotent response", zap.Int("status", rec.Status))
		c.Header(IdempotentReplayedHeader, "true")
		c.Data(rec.Status, rec.ContentType, rec.Body)
		c.Abort()
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{' '})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseCapture tees the response body so it can be stored
type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
