package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: expiration,
		Issuer:                "test-issuer",
	})
}

func newJWTRouter(jwtService *auth.JWTService, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(jwtService, nil))
	router.GET("/test", handler)
	return router
}

func okHandler(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	userID := uuid.New()
	token, err := jwtService.Generate(userID, "operator")
	require.NoError(t, err)

	router := newJWTRouter(jwtService, func(c *gin.Context) {
		claims := GetClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, userID.String(), GetUserID(c))
		assert.Equal(t, "operator", GetUsername(c))
		assert.Equal(t, userID.String(), logger.UserID(c.Request.Context()))
		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuth_Rejections(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	expired, err := newTestJWTService(-time.Minute).Generate(uuid.New(), "operator")
	require.NoError(t, err)
	foreign, err := auth.NewJWTService(config.JWTConfig{
		Secret:                "another-secret-key-of-32-characters",
		AccessTokenExpiration: time.Minute,
	}).Generate(uuid.New(), "operator")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeTokenInvalid},
		{"empty token", "Bearer ", dto.ErrCodeTokenInvalid},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"foreign signature", "Bearer " + foreign.AccessToken, dto.ErrCodeTokenInvalid},
		{"expired", "Bearer " + expired.AccessToken, dto.ErrCodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newJWTRouter(jwtService, func(c *gin.Context) {
				t.Fatal("handler must not run")
			})
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestContextHelpers_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetClaims(c))
	assert.Empty(t, GetUserID(c))
	assert.Empty(t, GetUsername(c))
}
