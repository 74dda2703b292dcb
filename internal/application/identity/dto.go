package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	User        UserInfo  `json:"user"`
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}
