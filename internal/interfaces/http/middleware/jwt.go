package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	ClaimsKey   = "jwt_claims"
	UserIDKey   = "jwt_user_id"
	UsernameKey = "jwt_username"

	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// JWTAuth requires a valid bearer token. The user id becomes the actor of
// ledger writes and is attached to the request context for logging.
func JWTAuth(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			rejectToken(c, log, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			rejectToken(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			rejectToken(c, log, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := validator.Validate(tokenString)
		if err != nil {
			rejectToken(c, log, err, "Token validation failed")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func rejectToken(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", GetRequestID(c)),
	)

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		abortWithCode(c, dto.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingUserID):
		abortWithCode(c, dto.ErrCodeTokenInvalid, "Invalid token")
	default:
		abortWithCode(c, dto.ErrCodeUnauthorized, "Authentication required")
	}
}

// GetClaims returns the validated claims, or nil on public routes
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername returns the authenticated username
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
