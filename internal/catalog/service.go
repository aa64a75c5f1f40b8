package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, p Product) error
	Get(ctx context.Context, id string) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Update(ctx context.Context, id string, patch Patch, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog and stock operations.
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

// Create validates and persists a new product.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Product{}, errors.New("catalog: name required")
	}
	if input.Price < 0 {
		return Product{}, errors.New("catalog: price must be >= 0")
	}
	if input.Cost < 0 {
		return Product{}, errors.New("catalog: cost must be >= 0")
	}
	if input.Stock < 0 {
		return Product{}, errors.New("catalog: stock must be >= 0")
	}

	now := s.clock.Now()
	p := Product{
		ID:          s.ids.NewID(),
		Name:        input.Name,
		Price:       input.Price,
		Cost:        input.Cost,
		Stock:       input.Stock,
		MinStock:    input.MinStock,
		Category:    strings.TrimSpace(input.Category),
		Barcode:     strings.TrimSpace(input.Barcode),
		Description: input.Description,
		ImageURL:    input.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	if id == "" {
		return Product{}, ErrProductNotFound
	}
	return s.repo.Get(ctx, id)
}

// GetByBarcode returns one product by barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	if barcode == "" {
		return Product{}, ErrProductNotFound
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

// List returns filtered products.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.List(ctx, filter)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	if id == "" {
		return Product{}, ErrProductNotFound
	}
	if patch.Price != nil && *patch.Price < 0 {
		return Product{}, errors.New("catalog: price must be >= 0")
	}
	if patch.Cost != nil && *patch.Cost < 0 {
		return Product{}, errors.New("catalog: cost must be >= 0")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Product{}, errors.New("catalog: name required")
	}
	if err := s.repo.Update(ctx, id, patch, s.clock.Now()); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the product so historical sales keep a valid reference.
func (s *Service) Delete(ctx context.Context, id string, userID string) error {
	if id == "" {
		return ErrProductNotFound
	}
	if err := s.repo.SoftDelete(ctx, id, s.clock.Now()); err != nil {
		return err
	}
	s.recordAudit(ctx, userID, "catalog:deactivate", id, nil)
	return nil
}

// AdjustStock applies a signed stock delta outside the sale path (manual
// corrections). The read, guard, write and ledger append run in one unit.
func (s *Service) AdjustStock(ctx context.Context, productID string, delta int, reason, userID string) (Product, error) {
	if delta == 0 {
		return Product{}, ErrInvalidQuantity
	}
	return s.applyStockChange(ctx, productID, delta, ledger.TypeAdjustment, reason, userID)
}

// Restock replenishes stock, recording a restock movement.
func (s *Service) Restock(ctx context.Context, productID string, quantity int, reason, userID string) (Product, error) {
	if quantity <= 0 {
		return Product{}, ErrInvalidQuantity
	}
	return s.applyStockChange(ctx, productID, quantity, ledger.TypeRestock, reason, userID)
}

func (s *Service) applyStockChange(ctx context.Context, productID string, delta int, movementType ledger.MovementType, reason, userID string) (Product, error) {
	if productID == "" {
		return Product{}, ErrProductNotFound
	}
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		newStock := p.Stock + delta
		if newStock < 0 {
			return fmt.Errorf("%w: stock %d, delta %d", ErrNegativeStock, p.Stock, delta)
		}
		now := s.clock.Now()
		if err := tx.UpdateStock(ctx, productID, newStock, now); err != nil {
			return err
		}
		mv := ledger.Movement{
			ID:            s.ids.NewID(),
			ProductID:     productID,
			Type:          movementType,
			Quantity:      delta,
			PreviousStock: p.Stock,
			NewStock:      newStock,
			Notes:         reason,
			CreatedBy:     userID,
			CreatedAt:     now,
		}
		if err := tx.InsertMovement(ctx, mv); err != nil {
			return err
		}
		updated = p
		updated.Stock = newStock
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, userID, "catalog:"+string(movementType), productID, map[string]any{
		"delta":  delta,
		"stock":  updated.Stock,
		"reason": reason,
	})
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: entityID,
		Meta:     meta,
	})
}
