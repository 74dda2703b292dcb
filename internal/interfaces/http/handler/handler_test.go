package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/interfaces/http/dto"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

const testUserID = "2b0c7f0e-4d7a-4c61-9a56-2f5a0d1e7c11"

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// newTestRouter mounts the handlers under /api/v1 behind a stand-in for
// JWTAuth that marks every request as testUserID.
func newTestRouter(handlers ...routeRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Next()
	})
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// testEnvelope mirrors dto.Response with the payload left raw
type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NotEmpty(t, env.Data, w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
