package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type fakeRepo struct {
	products  map[string]catalog.Product
	sales     map[string]Sale
	items     map[string][]SaleItem
	movements []ledger.Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[string]catalog.Product{},
		sales:    map[string]Sale{},
		items:    map[string][]SaleItem{},
	}
}

func (f *fakeRepo) snapshot() *fakeRepo {
	cp := newFakeRepo()
	for k, v := range f.products {
		cp.products[k] = v
	}
	for k, v := range f.sales {
		cp.sales[k] = v
	}
	for k, v := range f.items {
		cp.items[k] = append([]SaleItem(nil), v...)
	}
	cp.movements = append([]ledger.Movement(nil), f.movements...)
	return cp
}

func (f *fakeRepo) restore(snap *fakeRepo) {
	f.products = snap.products
	f.sales = snap.sales
	f.items = snap.items
	f.movements = snap.movements
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := f.snapshot()
	if err := fn(ctx, f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeRepo) MaxDailyNumber(_ context.Context, day time.Time) (int, error) {
	max := 0
	for _, s := range f.sales {
		if shared.DayOf(s.CreatedAt).Equal(shared.DayOf(day)) && s.DailyNumber > max {
			max = s.DailyNumber
		}
	}
	return max, nil
}

func (f *fakeRepo) InsertSale(_ context.Context, s Sale) error {
	f.sales[s.ID] = s
	return nil
}

func (f *fakeRepo) InsertItem(_ context.Context, it SaleItem) error {
	f.items[it.SaleID] = append(f.items[it.SaleID], it)
	return nil
}

func (f *fakeRepo) GetProductForUpdate(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeRepo) UpdateProductStock(_ context.Context, id string, newStock int, at time.Time) error {
	p, ok := f.products[id]
	if !ok {
		return catalog.ErrProductNotFound
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

func (f *fakeRepo) GetSaleForUpdate(_ context.Context, id string) (Sale, error) {
	s, ok := f.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return s, nil
}

func (f *fakeRepo) ListItems(_ context.Context, saleID string) ([]SaleItem, error) {
	return f.items[saleID], nil
}

func (f *fakeRepo) MarkCancelled(_ context.Context, id string) error {
	s, ok := f.sales[id]
	if !ok {
		return ErrSaleNotFound
	}
	s.IsActive = false
	f.sales[id] = s
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (Sale, error) {
	s, ok := f.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	s.Items = f.items[id]
	return s, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, s := range f.sales {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) movementsFor(productID string) []ledger.Movement {
	var out []ledger.Movement
	for _, mv := range f.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out
}

type fakeIdem struct {
	keys map[string]bool
}

func newFakeIdem() *fakeIdem { return &fakeIdem{keys: map[string]bool{}} }

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type seqIDs struct {
	n int
}

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func newTestService(repo *fakeRepo, idem IdempotencyPort, clock *fixedClock) *Service {
	return NewService(repo, idem, nil, nil, &seqIDs{}, clock, slog.Default())
}

func seedProduct(repo *fakeRepo, id, name string, stock, minStock int) {
	repo.products[id] = catalog.Product{
		ID: id, Name: name, Price: 10, Stock: stock, MinStock: minStock, IsActive: true,
	}
}

func validInput(items ...ItemInput) CreateInput {
	total := 0.0
	for _, it := range items {
		total += it.TotalPrice
	}
	return CreateInput{
		Items:         items,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: PaymentCash,
		CashierID:     "cashier-1",
		CashierName:   "Ana",
	}
}

func TestCreateAssignsSequentialDailyNumbers(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 100, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	first, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, 1, first.DailyNumber)

	second, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, 2, second.DailyNumber)

	// Sequence resets on the next calendar day.
	clock.t = clock.t.Add(24 * time.Hour)
	third, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, 1, third.DailyNumber)
}

func TestCreateDecrementsStockAndWritesLedger(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 20, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	sale, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 3, UnitPrice: 10, TotalPrice: 30}))
	require.NoError(t, err)
	require.Equal(t, 17, repo.products["p1"].Stock)
	require.Len(t, sale.Items, 1)
	require.Equal(t, "Coffee", sale.Items[0].ProductName)

	movements := repo.movementsFor("p1")
	require.Len(t, movements, 1)
	mv := movements[0]
	require.Equal(t, ledger.TypeSale, mv.Type)
	require.Equal(t, 3, mv.Quantity)
	require.Equal(t, 20, mv.PreviousStock)
	require.Equal(t, 17, mv.NewStock)
	require.Equal(t, sale.ID, mv.ReferenceID)
	require.Equal(t, "cashier-1", mv.CreatedBy)
}

func TestCreateInsufficientStockRollsBackEverything(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 50, 5)
	seedProduct(repo, "p2", "Tea", 7, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	_, err := svc.Create(context.Background(), validInput(
		ItemInput{ProductID: "p1", Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		ItemInput{ProductID: "p2", Quantity: 8, UnitPrice: 10, TotalPrice: 80},
	))

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "p2", insufficient.ProductID)
	require.Contains(t, err.Error(), "Disponible: 7, Solicitado: 8")

	// The first line's decrement must be rolled back too.
	require.Equal(t, 50, repo.products["p1"].Stock)
	require.Equal(t, 7, repo.products["p2"].Stock)
	require.Empty(t, repo.sales)
	require.Empty(t, repo.movements)
}

func TestCreateFailureDoesNotConsumeDailyNumber(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 1, 0)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	_, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 5, UnitPrice: 10, TotalPrice: 50}))
	require.Error(t, err)

	sale, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, 1, sale.DailyNumber)
}

func TestCreateStoresAmountsVerbatim(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 10, 0)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	// Deliberately inconsistent amounts; the engine must not recompute them.
	input := validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	input.Subtotal = 99.99
	input.Tax = 1.5
	input.Discount = 0.25
	input.Total = 42

	sale, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 99.99, sale.Subtotal)
	require.Equal(t, 1.5, sale.Tax)
	require.Equal(t, 0.25, sale.Discount)
	require.Equal(t, 42.0, sale.Total)
}

func TestCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	_, err := svc.Create(context.Background(), CreateInput{Total: 10, PaymentMethod: PaymentCash})
	require.ErrorIs(t, err, ErrEmptySale)

	input := validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	input.Total = 0
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidTotal)

	input = validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	input.PaymentMethod = "bitcoin"
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidPayment)

	input = validInput(ItemInput{ProductID: "p1", Quantity: 0, UnitPrice: 10, TotalPrice: 10})
	input.Total = 10
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidItem)

	input = validInput(ItemInput{ProductID: "", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidItem)

	input = validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: -1, TotalPrice: 10})
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestCreateIdempotency(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 10, 0)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	idem := newFakeIdem()
	svc := newTestService(repo, idem, clock)

	input := validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	input.ClientRef = "terminal-1-0001"

	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, 9, repo.products["p1"].Stock)
}

func TestCreateFailureReleasesIdempotencyKey(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 1, 0)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	idem := newFakeIdem()
	svc := newTestService(repo, idem, clock)

	input := validInput(ItemInput{ProductID: "p1", Quantity: 5, UnitPrice: 10, TotalPrice: 50})
	input.ClientRef = "terminal-1-0002"
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)

	// The terminal can retry the same reference after fixing the ticket.
	retry := validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10})
	retry.ClientRef = "terminal-1-0002"
	_, err = svc.Create(context.Background(), retry)
	require.NoError(t, err)
}

func TestCancelRestoresStockExactly(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 20, 5)
	seedProduct(repo, "p2", "Tea", 10, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	sale, err := svc.Create(context.Background(), validInput(
		ItemInput{ProductID: "p1", Quantity: 3, UnitPrice: 10, TotalPrice: 30},
		ItemInput{ProductID: "p2", Quantity: 2, UnitPrice: 10, TotalPrice: 20},
	))
	require.NoError(t, err)
	require.Equal(t, 17, repo.products["p1"].Stock)
	require.Equal(t, 8, repo.products["p2"].Stock)

	cancelled, err := svc.Cancel(context.Background(), sale.ID, "admin-1")
	require.NoError(t, err)
	require.False(t, cancelled.IsActive)
	require.Equal(t, 20, repo.products["p1"].Stock)
	require.Equal(t, 10, repo.products["p2"].Stock)

	movements := repo.movementsFor("p1")
	require.Len(t, movements, 2)
	comp := movements[1]
	require.Equal(t, ledger.TypeAdjustment, comp.Type)
	require.Equal(t, 3, comp.Quantity)
	require.Equal(t, 17, comp.PreviousStock)
	require.Equal(t, 20, comp.NewStock)
	require.Equal(t, sale.ID, comp.ReferenceID)
	require.Equal(t, fmt.Sprintf("Cancelación venta #%d", sale.DailyNumber), comp.Notes)
	require.Equal(t, "admin-1", comp.CreatedBy)
}

func TestCancelTwiceFails(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 20, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	sale, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sale.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sale.ID, "admin-1")
	require.ErrorIs(t, err, ErrSaleCancelled)
	require.Equal(t, 20, repo.products["p1"].Stock)
}

func TestCancelUnknownSale(t *testing.T) {
	repo := newFakeRepo()
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	_, err := svc.Cancel(context.Background(), "nope", "admin-1")
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestCancelSkipsVanishedProducts(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 20, 5)
	seedProduct(repo, "p2", "Tea", 10, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	sale, err := svc.Create(context.Background(), validInput(
		ItemInput{ProductID: "p1", Quantity: 3, UnitPrice: 10, TotalPrice: 30},
		ItemInput{ProductID: "p2", Quantity: 2, UnitPrice: 10, TotalPrice: 20},
	))
	require.NoError(t, err)

	// Simulate a product hard-removed between sale and cancellation.
	delete(repo.products, "p1")

	cancelled, err := svc.Cancel(context.Background(), sale.ID, "admin-1")
	require.NoError(t, err)
	require.False(t, cancelled.IsActive)
	require.Equal(t, 10, repo.products["p2"].Stock)
}

func TestCreateNotifiesLowStock(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 6, 5)
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	var alerts []string
	alertFn := alertFunc(func(_ context.Context, productID, _ string, _, _ int) error {
		alerts = append(alerts, productID)
		return nil
	})
	svc := NewService(repo, nil, nil, alertFn, &seqIDs{}, clock, slog.Default())

	_, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "p1", Quantity: 2, UnitPrice: 10, TotalPrice: 20}))
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, alerts)
}

type alertFunc func(ctx context.Context, productID, name string, stock, minStock int) error

func (f alertFunc) EnqueueLowStock(ctx context.Context, productID, name string, stock, minStock int) error {
	return f(ctx, productID, name, stock, minStock)
}

func TestCreateUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)

	_, err := svc.Create(context.Background(), validInput(ItemInput{ProductID: "ghost", Quantity: 1, UnitPrice: 10, TotalPrice: 10}))
	require.True(t, errors.Is(err, catalog.ErrProductNotFound))
}
