package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)
	zl := zap.New(core)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), "req-1"))
		c.Next()
	})
	router.Use(GinMiddleware(zl), Recovery(zl))
	return router, recorded
}

func TestGinMiddleware(t *testing.T) {
	router, recorded := newLoggedRouter(t)
	router.GET("/items/:id", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/abc?x=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	inside := recorded.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-1", inside[0].ContextMap()["request_id"])

	reqLogs := recorded.FilterMessage("HTTP request").All()
	require.Len(t, reqLogs, 1)
	assert.Equal(t, zapcore.InfoLevel, reqLogs[0].Level)
	fields := reqLogs[0].ContextMap()
	assert.Equal(t, "/items/:id", fields["route"])
	assert.Equal(t, "x=1", fields["query"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	router, recorded := newLoggedRouter(t)
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
	router.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/down", nil))

	logs := recorded.FilterMessage("HTTP request").All()
	require.Len(t, logs, 2)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestRecovery(t *testing.T) {
	router, recorded := newLoggedRouter(t)
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-1", panics[0].ContextMap()["request_id"])
}
