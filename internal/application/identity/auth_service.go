package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
)

// ErrInvalidCredentials is returned for an unknown user, a wrong password and an inactive account alike.
var ErrInvalidCredentials = shared.NewDomainError(shared.CodeUnauthorized, "Invalid username or password")

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login authenticates a user and returns an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("User not found during login", zap.String("username", input.Username))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		s.logger.Warn("Login attempt for deactivated account", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.Generate(user.ID, user.Username)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_ERROR", "Failed to generate token")
	}

	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to record login", zap.String("username", user.Username), zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	return &LoginResult{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        toUserInfo(user),
	}, nil
}

// SeedAdmin creates the first operator when no users exist. It reports
// whether a user was created.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	user, err := identity.NewUser(username, password, "Administrator")
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return false, err
	}
	s.logger.Info("Seeded admin user", zap.String("username", user.Username))
	return true, nil
}
