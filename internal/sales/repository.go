package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// TxRepository exposes the operations the sale engine runs inside one
// transaction. Creation and cancellation both lock product rows before
// touching stock, so concurrent tickets serialize per product.
type TxRepository interface {
	MaxDailyNumber(ctx context.Context, day time.Time) (int, error)
	InsertSale(ctx context.Context, s Sale) error
	InsertItem(ctx context.Context, it SaleItem) error
	GetProductForUpdate(ctx context.Context, id string) (catalog.Product, error)
	UpdateProductStock(ctx context.Context, id string, newStock int, at time.Time) error
	InsertMovement(ctx context.Context, mv ledger.Movement) error
	GetSaleForUpdate(ctx context.Context, id string) (Sale, error)
	ListItems(ctx context.Context, saleID string) ([]SaleItem, error)
	MarkCancelled(ctx context.Context, id string) error
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx, pool: r.pool})
	})
}

const saleColumns = `id, subtotal, tax, discount, total, payment_method,
	cashier_id, cashier_name, customer_name, notes, daily_number, is_active, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.Subtotal, &s.Tax, &s.Discount, &s.Total, &s.PaymentMethod,
		&s.CashierID, &s.CashierName, &s.CustomerName, &s.Notes, &s.DailyNumber, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	return s, nil
}

// MaxDailyNumber returns the highest daily number assigned on the given
// calendar day, or zero when no sale exists yet.
func (r *Repository) MaxDailyNumber(ctx context.Context, day time.Time) (int, error) {
	var max int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(daily_number), 0) FROM sales WHERE created_at::date = $1::date`, day).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("sales: max daily number: %w", err)
	}
	return max, nil
}

// InsertSale writes the sale header.
func (r *Repository) InsertSale(ctx context.Context, s Sale) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales
			(id, subtotal, tax, discount, total, payment_method, cashier_id, cashier_name,
			 customer_name, notes, daily_number, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.Subtotal, s.Tax, s.Discount, s.Total, string(s.PaymentMethod), s.CashierID, s.CashierName,
		s.CustomerName, s.Notes, s.DailyNumber, s.IsActive, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("sales: insert sale: %w", err)
	}
	return nil
}

// InsertItem writes one sale line.
func (r *Repository) InsertItem(ctx context.Context, it SaleItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sale_items
			(id, sale_id, product_id, product_name, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.SaleID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
	if err != nil {
		return fmt.Errorf("sales: insert item: %w", err)
	}
	return nil
}

// GetProductForUpdate locks the product row for the remainder of the
// transaction and returns its current state.
func (r *Repository) GetProductForUpdate(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, cost, stock, min_stock, category,
			COALESCE(barcode, ''), description, image_url, is_active, created_at, updated_at
		FROM products WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.Category,
			&p.Barcode, &p.Description, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrProductNotFound
		}
		return catalog.Product{}, err
	}
	return p, nil
}

// UpdateProductStock writes the absolute stock value computed by the caller.
func (r *Repository) UpdateProductStock(ctx context.Context, id string, newStock int, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3`, newStock, at, id)
	if err != nil {
		return fmt.Errorf("sales: update product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// InsertMovement appends a ledger entry using the transactional handle.
func (r *Repository) InsertMovement(ctx context.Context, mv ledger.Movement) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stock_movements
			(id, product_id, movement_type, quantity, previous_stock, new_stock, reference_id, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10)`,
		mv.ID, mv.ProductID, string(mv.Type), mv.Quantity, mv.PreviousStock, mv.NewStock,
		mv.ReferenceID, mv.Notes, mv.CreatedBy, mv.CreatedAt)
	if err != nil {
		return fmt.Errorf("sales: insert movement: %w", err)
	}
	return nil
}

// GetSaleForUpdate locks the sale header so concurrent cancellations
// serialize.
func (r *Repository) GetSaleForUpdate(ctx context.Context, id string) (Sale, error) {
	return scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
}

// ListItems returns the lines of one sale in insertion order.
func (r *Repository) ListItems(ctx context.Context, saleID string) ([]SaleItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, total_price
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("sales: list items: %w", err)
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkCancelled flips the sale header to inactive.
func (r *Repository) MarkCancelled(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE sales SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: mark cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

// Get returns one sale with its items.
func (r *Repository) Get(ctx context.Context, id string) (Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return Sale{}, err
	}
	items, err := r.ListItems(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	s.Items = items
	return s, nil
}

// List returns filtered sales plus the unpaginated total. Items are not
// loaded; callers needing lines fetch the sale individually.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	appendCond := func(cond string, value interface{}) {
		where += fmt.Sprintf(" AND "+cond, argPos)
		args = append(args, value)
		argPos++
	}

	if !filter.From.IsZero() {
		appendCond("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		appendCond("created_at < $%d", filter.To)
	}
	if filter.PaymentMethod != "" {
		appendCond("payment_method = $%d", string(filter.PaymentMethod))
	}
	if filter.CashierID != "" {
		appendCond("cashier_id = $%d", filter.CashierID)
	}
	if filter.Active != nil {
		appendCond("is_active = $%d", *filter.Active)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sales "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count sales: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf("SELECT "+saleColumns+" FROM sales %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	return sales, total, rows.Err()
}
