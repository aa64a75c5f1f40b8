package ledger

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter) ([]Movement, int, error)
}

// Service exposes the read side of the stock ledger. Entries are appended by
// the sales and catalog transactions that move stock; nothing updates or
// deletes them, and corrections always arrive as new entries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns movements for reconciliation and reporting.
func (s *Service) List(ctx context.Context, filter Filter) ([]Movement, int, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidMovementType, filter.Type)
	}
	return s.repo.List(ctx, filter)
}
