package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pong(path string) RouteFunc {
	return func(rg *gin.RouterGroup) {
		rg.GET(path, func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}
}

func requireHeader(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

func serve(engine *gin.Engine, path string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth {
		req.Header.Set("Authorization", "Bearer x")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.public)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).
		Use(requireHeader).
		RegisterPublic(pong("/auth/ping")).
		Register(pong("/items/ping")).
		Setup()

	tests := []struct {
		name   string
		path   string
		auth   bool
		status int
	}{
		{"public without auth", "/api/v1/auth/ping", false, http.StatusOK},
		{"protected without auth", "/api/v1/items/ping", false, http.StatusUnauthorized},
		{"protected with auth", "/api/v1/items/ping", true, http.StatusOK},
		{"unversioned path", "/items/ping", true, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.path, tt.auth)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouterSetup_MiddlewareOrder(t *testing.T) {
	engine := gin.New()
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}
	NewRouter(engine, WithAPIVersion("v2")).
		Use(mark("auth")).
		Use(mark("ratelimit"), mark("idempotency")).
		Register(pong("/ping")).
		Setup()

	w := serve(engine, "/api/v2/ping", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"auth", "ratelimit", "idempotency"}, order)
}
