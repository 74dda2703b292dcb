// Package identity holds the operators who record stock movements.
package identity

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wms/backend/internal/domain/shared"
)

// Password cost for bcrypt
const bcryptCost = 12

// User is an operator account.
type User struct {
	shared.BaseEntity
	Username     string
	PasswordHash string
	DisplayName  string
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates an active user with a hashed password.
func NewUser(username, password, displayName string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 || len(username) > 64 {
		return nil, shared.NewValidationError("username must be between 3 and 64 characters")
	}
	if len(password) < 8 {
		return nil, shared.NewValidationError("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	if displayName == "" {
		displayName = username
	}
	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Active:       true,
	}, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLogin stamps a successful login.
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// UserRepository persists users.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, user *User) error
	Count(ctx context.Context) (int64, error)
}
