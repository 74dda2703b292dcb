package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

type idempotencyFixture struct {
	router *gin.Engine
	store  *cache.InMemoryResponseStore
	calls  atomic.Int32
	status int
}

func newIdempotencyFixture(t *testing.T) *idempotencyFixture {
	t.Helper()
	f := &idempotencyFixture{
		store:  cache.NewInMemoryResponseStore(time.Minute),
		status: http.StatusCreated,
	}
	t.Cleanup(func() { _ = f.store.Close() })

	f.router = gin.New()
	f.router.Use(RequestID(), func(c *gin.Context) {
		c.Set(UserIDKey, "user-1")
		c.Next()
	}, Idempotency(IdempotencyConfig{Store: f.store, TTL: time.Hour}))
	handler := func(c *gin.Context) {
		n := f.calls.Add(1)
		c.JSON(f.status, dto.NewSuccessResponse(gin.H{"call": n}))
	}
	f.router.POST("/transactions", handler)
	f.router.GET("/transactions", handler)
	return f
}

func (f *idempotencyFixture) do(method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	f := newIdempotencyFixture(t)

	first := f.do(http.MethodPost, "key-1", `{"type":"inbound"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayedHeader))

	second := f.do(http.MethodPost, "key-1", `{"type":"inbound"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestIdempotency_WithoutKeyOrOnReads(t *testing.T) {
	f := newIdempotencyFixture(t)

	f.do(http.MethodPost, "", `{}`)
	f.do(http.MethodPost, "", `{}`)
	f.do(http.MethodGet, "key-1", "")
	f.do(http.MethodGet, "key-1", "")
	assert.EqualValues(t, 4, f.calls.Load())
	assert.Zero(t, f.store.Len())
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	f := newIdempotencyFixture(t)

	f.do(http.MethodPost, "key-1", `{"qty":1}`)
	w := f.do(http.MethodPost, "key-1", `{"qty":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeIdempotencyMismatch, errorCode(t, w))
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestIdempotency_InFlight(t *testing.T) {
	f := newIdempotencyFixture(t)
	_, err := f.store.Reserve(context.Background(), "user-1:key-1", cache.Record{
		Pending:     true,
		Fingerprint: requestFingerprint(http.MethodPost, "/transactions", []byte(`{}`)),
	}, time.Hour)
	require.NoError(t, err)

	w := f.do(http.MethodPost, "key-1", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeIdempotencyInFlight, errorCode(t, w))
	assert.Zero(t, f.calls.Load())
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	f := newIdempotencyFixture(t)
	f.status = http.StatusServiceUnavailable

	f.do(http.MethodPost, "key-1", `{}`)
	f.status = http.StatusCreated
	w := f.do(http.MethodPost, "key-1", `{}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	f := newIdempotencyFixture(t)
	f.status = http.StatusUnprocessableEntity

	f.do(http.MethodPost, "key-1", `{}`)
	w := f.do(http.MethodPost, "key-1", `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "true", w.Header().Get(IdempotentReplayedHeader))
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	f := newIdempotencyFixture(t)
	w := f.do(http.MethodPost, strings.Repeat("k", maxIdempotencyKeyLength+1), `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
}

type failingStore struct{ cache.ResponseStore }

func (failingStore) Reserve(context.Context, string, cache.Record, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestIdempotency_StoreFailureFailsOpen(t *testing.T) {
	router := gin.New()
	router.Use(Idempotency(IdempotencyConfig{Store: failingStore{}}))
	router.POST("/transactions", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestIdempotency_BodyIsRestored(t *testing.T) {
	f := newIdempotencyFixture(t)
	var got map[string]any
	f.router.PUT("/echo", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&got))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/echo", strings.NewReader(`{"sku":"A-1"}`))
	req.Header.Set(IdempotencyKeyHeader, "key-2")
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "A-1", got["sku"])
}
