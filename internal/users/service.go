package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, u User) error
	Get(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps account management rules.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	ids   shared.IDGenerator
	clock shared.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, ids shared.IDGenerator, clock shared.Clock) *Service {
	return &Service{repo: repo, audit: audit, ids: ids, clock: clock}
}

// Create registers a new account with a bcrypt hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID string) (User, error) {
	input.Username = strings.TrimSpace(strings.ToLower(input.Username))
	if input.Username == "" {
		return User{}, errors.New("users: username required")
	}
	if len(input.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	if !input.Role.Valid() {
		return User{}, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           s.ids.NewID(),
		Username:     input.Username,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users:create", u.ID, map[string]any{"username": u.Username, "role": string(u.Role)})
	return u, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrUserNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Deactivate disables login without losing sale history references.
func (s *Service) Deactivate(ctx context.Context, id, actorID string) error {
	if id == "" {
		return ErrUserNotFound
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users:deactivate", id, nil)
	return nil
}

// Activate re-enables a disabled account.
func (s *Service) Activate(ctx context.Context, id, actorID string) error {
	if id == "" {
		return ErrUserNotFound
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users:activate", id, nil)
	return nil
}

// ChangePassword replaces the account password.
func (s *Service) ChangePassword(ctx context.Context, id, password, actorID string) error {
	if id == "" {
		return ErrUserNotFound
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users:change_password", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	})
}
