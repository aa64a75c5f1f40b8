package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed sale submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AlertPort receives low-stock notifications after a committed sale. Delivery
// is best effort; a failed enqueue never fails the sale.
type AlertPort interface {
	EnqueueLowStock(ctx context.Context, productID, name string, stock, minStock int) error
}

// Service is the sale transaction engine. Creation and cancellation each run
// as a single unit of work: either every stock decrement, ledger entry and
// the sale header land together, or none of them do.
type Service struct {
	repo   RepositoryPort
	idem   IdempotencyPort
	audit  AuditPort
	alerts AlertPort
	ids    shared.IDGenerator
	clock  shared.Clock
	logger *slog.Logger
}

// NewService builds Service. idem, audit and alerts may be nil.
func NewService(repo RepositoryPort, idem IdempotencyPort, audit AuditPort, alerts AlertPort,
	ids shared.IDGenerator, clock shared.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, idem: idem, audit: audit, alerts: alerts, ids: ids, clock: clock, logger: logger}
}

// Create registers a sale: assigns the next daily number, snapshots each
// product line, decrements stock under row locks, and appends one ledger
// entry per line. Validation runs before the transaction opens so malformed
// submissions never consume a daily number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Sale, error) {
	if err := validateCreate(input); err != nil {
		return Sale{}, err
	}

	if input.ClientRef != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.ClientRef, "sales"); err != nil {
			return Sale{}, err
		}
	}

	var sale Sale
	var lowStock []catalog.Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.clock.Now()
		max, err := tx.MaxDailyNumber(ctx, now)
		if err != nil {
			return err
		}

		sale = Sale{
			ID:            s.ids.NewID(),
			Subtotal:      input.Subtotal,
			Tax:           input.Tax,
			Discount:      input.Discount,
			Total:         input.Total,
			PaymentMethod: input.PaymentMethod,
			CashierID:     input.CashierID,
			CashierName:   input.CashierName,
			CustomerName:  strings.TrimSpace(input.CustomerName),
			Notes:         strings.TrimSpace(input.Notes),
			DailyNumber:   max + 1,
			IsActive:      true,
			CreatedAt:     now,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}

		lowStock = lowStock[:0]
		for _, line := range input.Items {
			p, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p.Stock < line.Quantity {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   line.Quantity,
				}
			}

			name := line.ProductName
			if name == "" {
				name = p.Name
			}
			it := SaleItem{
				ID:          s.ids.NewID(),
				SaleID:      sale.ID,
				ProductID:   p.ID,
				ProductName: name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				TotalPrice:  line.TotalPrice,
			}
			if err := tx.InsertItem(ctx, it); err != nil {
				return err
			}
			sale.Items = append(sale.Items, it)

			newStock := p.Stock - line.Quantity
			if err := tx.UpdateProductStock(ctx, p.ID, newStock, now); err != nil {
				return err
			}
			mv := ledger.Movement{
				ID:            s.ids.NewID(),
				ProductID:     p.ID,
				Type:          ledger.TypeSale,
				Quantity:      line.Quantity,
				PreviousStock: p.Stock,
				NewStock:      newStock,
				ReferenceID:   sale.ID,
				Notes:         fmt.Sprintf("Venta #%d", sale.DailyNumber),
				CreatedBy:     input.CashierID,
				CreatedAt:     now,
			}
			if err := tx.InsertMovement(ctx, mv); err != nil {
				return err
			}

			p.Stock = newStock
			if p.OutOfStock() || p.LowStock() {
				lowStock = append(lowStock, p)
			}
		}
		return nil
	})
	if err != nil {
		if input.ClientRef != "" && s.idem != nil {
			if delErr := s.idem.Delete(ctx, input.ClientRef); delErr != nil {
				s.logger.Warn("sales: idempotency rollback failed",
					slog.String("client_ref", input.ClientRef), slog.Any("error", delErr))
			}
		}
		return Sale{}, err
	}

	s.recordAudit(ctx, input.CashierID, "sales:create", sale.ID, map[string]any{
		"daily_number": sale.DailyNumber,
		"total":        sale.Total,
		"items":        len(sale.Items),
	})
	s.notifyLowStock(ctx, lowStock)
	return sale, nil
}

// Get returns one sale with its items.
func (s *Service) Get(ctx context.Context, id string) (Sale, error) {
	if id == "" {
		return Sale{}, ErrSaleNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns filtered sales.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	return s.repo.List(ctx, filter)
}

// Cancel reverses a sale: every line's quantity returns to stock with a
// compensating ledger entry, then the header flips inactive. The sale row is
// kept so its daily number stays occupied. Lines whose product has since been
// hard-removed are skipped with a warning instead of blocking the refund.
func (s *Service) Cancel(ctx context.Context, id, userID string) (Sale, error) {
	if id == "" {
		return Sale{}, ErrSaleNotFound
	}

	var cancelled Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sale.IsActive {
			return ErrSaleCancelled
		}

		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for _, it := range items {
			p, err := tx.GetProductForUpdate(ctx, it.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					s.logger.Warn("sales: product missing during cancellation, stock not restored",
						slog.String("sale_id", id), slog.String("product_id", it.ProductID))
					continue
				}
				return err
			}

			newStock := p.Stock + it.Quantity
			if err := tx.UpdateProductStock(ctx, p.ID, newStock, now); err != nil {
				return err
			}
			mv := ledger.Movement{
				ID:            s.ids.NewID(),
				ProductID:     p.ID,
				Type:          ledger.TypeAdjustment,
				Quantity:      it.Quantity,
				PreviousStock: p.Stock,
				NewStock:      newStock,
				ReferenceID:   sale.ID,
				Notes:         fmt.Sprintf("Cancelación venta #%d", sale.DailyNumber),
				CreatedBy:     userID,
				CreatedAt:     now,
			}
			if err := tx.InsertMovement(ctx, mv); err != nil {
				return err
			}
		}

		if err := tx.MarkCancelled(ctx, id); err != nil {
			return err
		}
		sale.IsActive = false
		sale.Items = items
		cancelled = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.recordAudit(ctx, userID, "sales:cancel", id, map[string]any{
		"daily_number": cancelled.DailyNumber,
		"total":        cancelled.Total,
	})
	return cancelled, nil
}

func validateCreate(input CreateInput) error {
	if len(input.Items) == 0 {
		return ErrEmptySale
	}
	if input.Total <= 0 {
		return ErrInvalidTotal
	}
	if !input.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	for _, line := range input.Items {
		if line.ProductID == "" {
			return fmt.Errorf("%w: product id required", ErrInvalidItem)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive (product %s)", ErrInvalidItem, line.ProductID)
		}
		if line.UnitPrice < 0 || line.TotalPrice < 0 {
			return fmt.Errorf("%w: prices must be >= 0 (product %s)", ErrInvalidItem, line.ProductID)
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: entityID,
		Meta:     meta,
	})
}

func (s *Service) notifyLowStock(ctx context.Context, products []catalog.Product) {
	if s.alerts == nil {
		return
	}
	for _, p := range products {
		if err := s.alerts.EnqueueLowStock(ctx, p.ID, p.Name, p.Stock, p.MinStock); err != nil {
			s.logger.Warn("sales: low stock alert enqueue failed",
				slog.String("product_id", p.ID), slog.Any("error", err))
		}
	}
}
