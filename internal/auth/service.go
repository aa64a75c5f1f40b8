// Package auth validates credentials and manages login sessions.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/users"
)

// Directory looks up accounts for credential checks.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	directory Directory
}

// NewService constructs a new Service.
func NewService(directory Directory) *Service {
	return &Service{directory: directory}
}

// Authenticate validates username/password credentials. Every failure mode
// collapses into the same error so responses never leak which part failed.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.User, error) {
	user, err := s.directory.GetByUsername(ctx, username)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
