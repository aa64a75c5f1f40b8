package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

type fakeRepo struct {
	products  map[string]Product
	movements []ledger.Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[string]Product{}}
}

func (f *fakeRepo) snapshot() *fakeRepo {
	cp := newFakeRepo()
	for k, v := range f.products {
		cp.products[k] = v
	}
	cp.movements = append([]ledger.Movement(nil), f.movements...)
	return cp
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := f.snapshot()
	if err := fn(ctx, f); err != nil {
		f.products = snap.products
		f.movements = snap.movements
		return err
	}
	return nil
}

func (f *fakeRepo) Create(_ context.Context, p Product) error {
	for _, existing := range f.products {
		if p.Barcode != "" && existing.Barcode == p.Barcode {
			return ErrBarcodeTaken
		}
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetByBarcode(_ context.Context, barcode string) (Product, error) {
	for _, p := range f.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (f *fakeRepo) List(_ context.Context, _ ListFilter) ([]Product, int, error) {
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, id string, patch Patch, at time.Time) error {
	p, ok := f.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Cost != nil {
		p.Cost = *patch.Cost
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Barcode != nil {
		p.Barcode = *patch.Barcode
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = at
	f.products[id] = p
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	p, ok := f.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.IsActive = false
	p.UpdatedAt = at
	f.products[id] = p
	return nil
}

func (f *fakeRepo) GetForUpdate(_ context.Context, id string) (Product, error) {
	return f.Get(context.Background(), id)
}

func (f *fakeRepo) UpdateStock(_ context.Context, id string, newStock int, at time.Time) error {
	p, ok := f.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = newStock
	p.UpdatedAt = at
	f.products[id] = p
	return nil
}

func (f *fakeRepo) InsertMovement(_ context.Context, mv ledger.Movement) error {
	f.movements = append(f.movements, mv)
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestService(repo *fakeRepo) *Service {
	clock := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewService(repo, nil, &seqIDs{}, clock)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateInput{Name: "  ", Price: 1})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Café", Price: -1})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Café", Price: 1, Stock: -5})
	require.Error(t, err)
}

func TestCreateSurfacesBarcodeCollision(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Café", Price: 8.5, Barcode: "779000"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Otro", Price: 2, Barcode: "779000"})
	require.ErrorIs(t, err, ErrBarcodeTaken)
	require.Len(t, repo.products, 1)
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{
		Name: "Café molido", Price: 8.5, Cost: 5.2, Stock: 10, MinStock: 3, Category: "abarrotes",
	})
	require.NoError(t, err)

	price := 9.0
	minStock := 0
	updated, err := svc.Update(context.Background(), created.ID, Patch{Price: &price, MinStock: &minStock})
	require.NoError(t, err)

	require.Equal(t, 9.0, updated.Price)
	require.Equal(t, 0, updated.MinStock)
	require.Equal(t, "Café molido", updated.Name)
	require.Equal(t, "abarrotes", updated.Category)
	require.Equal(t, 10, updated.Stock)
}

func TestUpdateValidatesPresentFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Café", Price: 8.5})
	require.NoError(t, err)

	bad := -1.0
	_, err = svc.Update(context.Background(), created.ID, Patch{Price: &bad})
	require.Error(t, err)

	empty := "   "
	_, err = svc.Update(context.Background(), created.ID, Patch{Name: &empty})
	require.Error(t, err)
}

func TestAdjustStockWritesLedgerEntry(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Leche", Price: 1.8, Stock: 20})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(context.Background(), created.ID, -4, "merma", "user-1")
	require.NoError(t, err)
	require.Equal(t, 16, updated.Stock)

	require.Len(t, repo.movements, 1)
	mv := repo.movements[0]
	require.Equal(t, ledger.TypeAdjustment, mv.Type)
	require.Equal(t, -4, mv.Quantity)
	require.Equal(t, 20, mv.PreviousStock)
	require.Equal(t, 16, mv.NewStock)
	require.Equal(t, "merma", mv.Notes)
	require.Equal(t, "user-1", mv.CreatedBy)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Pan", Price: 2.4, Stock: 3})
	require.NoError(t, err)

	_, err = svc.AdjustStock(context.Background(), created.ID, -5, "conteo", "user-1")
	require.ErrorIs(t, err, ErrNegativeStock)

	p, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 3, p.Stock)
	require.Empty(t, repo.movements)
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.AdjustStock(context.Background(), "p1", 0, "", "user-1")
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRestockRecordsRestockMovement(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Agua", Price: 1.1, Stock: 5})
	require.NoError(t, err)

	updated, err := svc.Restock(context.Background(), created.ID, 48, "pedido proveedor", "user-1")
	require.NoError(t, err)
	require.Equal(t, 53, updated.Stock)

	require.Len(t, repo.movements, 1)
	require.Equal(t, ledger.TypeRestock, repo.movements[0].Type)
	require.Equal(t, 48, repo.movements[0].Quantity)
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Restock(context.Background(), "p1", 0, "", "user-1")
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Restock(context.Background(), "p1", -3, "", "user-1")
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDeleteSoftDeletes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Detergente", Price: 4.9})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, "admin-1"))

	p, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, p.IsActive)
}
