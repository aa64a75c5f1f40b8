package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts the aggregate queries for the service.
type RepositoryPort interface {
	InventoryStats(ctx context.Context) (InventoryStats, error)
	SalesMetrics(ctx context.Context, rng Range) (SalesMetrics, error)
	TopProducts(ctx context.Context, rng Range, limit int) ([]TopProduct, error)
	PaymentBreakdown(ctx context.Context, rng Range) ([]PaymentBreakdown, error)
}

// Service coordinates report query execution with the cache layer. Concurrent
// requests for the same report collapse into a single database pass.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	clock shared.Clock
	group singleflight.Group
}

// NewService wires a RepositoryPort with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache, clock shared.Clock) *Service {
	return &Service{repo: repo, cache: cache, clock: clock}
}

// Overview assembles the dashboard payload. The independent aggregates run
// in parallel.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "overview", s.dayToken())
	if err != nil {
		return Overview{}, err
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		var overview Overview
		err := s.cache.FetchJSON(ctx, key, &overview, func(ctx context.Context) (interface{}, error) {
			return s.loadOverview(ctx)
		})
		return overview, err
	})
	if err != nil {
		return Overview{}, err
	}
	return value.(Overview), nil
}

func (s *Service) loadOverview(ctx context.Context) (Overview, error) {
	now := s.clock.Now()
	today := Range{From: shared.DayOf(now), To: shared.DayOf(now).Add(24 * time.Hour)}

	var overview Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.repo.InventoryStats(ctx)
		overview.Inventory = stats
		return err
	})
	g.Go(func() error {
		metrics, err := s.repo.SalesMetrics(ctx, today)
		overview.Today = metrics
		return err
	})
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, today, 10)
		overview.TopProducts = top
		return err
	})
	g.Go(func() error {
		payments, err := s.repo.PaymentBreakdown(ctx, today)
		overview.Payments = payments
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	overview.GeneratedAt = now
	return overview, nil
}

// InventoryStats returns the current catalog counters, uncached.
func (s *Service) InventoryStats(ctx context.Context) (InventoryStats, error) {
	return s.repo.InventoryStats(ctx)
}

// SalesReport aggregates sales over an arbitrary range.
func (s *Service) SalesReport(ctx context.Context, rng Range) (SalesMetrics, error) {
	return s.repo.SalesMetrics(ctx, rng)
}

// TopProducts ranks best sellers over an arbitrary range.
func (s *Service) TopProducts(ctx context.Context, rng Range, limit int) ([]TopProduct, error) {
	return s.repo.TopProducts(ctx, rng, limit)
}

// Invalidate drops every cached report. Called after sales mutate.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) dayToken() string {
	return shared.DayOf(s.clock.Now()).Format("2006-01-02")
}
