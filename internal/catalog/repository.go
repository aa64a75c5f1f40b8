package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists products in PostgreSQL.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// TxRepository exposes the stock operations that must run inside one
// transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Product, error)
	UpdateStock(ctx context.Context, id string, newStock int, at time.Time) error
	InsertMovement(ctx context.Context, mv ledger.Movement) error
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx, pool: r.pool})
	})
}

const productColumns = `id, name, price, cost, stock, min_stock, category,
	COALESCE(barcode, ''), description, image_url, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.Category,
		&p.Barcode, &p.Description, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products
			(id, name, price, cost, stock, min_stock, category, barcode, description, image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13)`,
		p.ID, p.Name, p.Price, p.Cost, p.Stock, p.MinStock, p.Category, p.Barcode,
		p.Description, p.ImageURL, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// Get returns one product by id, active or not.
func (r *Repository) Get(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetByBarcode returns one product by barcode.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode))
}

// GetForUpdate locks the product row for the remainder of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// List returns filtered products plus the unpaginated total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if filter.ActiveOnly {
		where += " AND is_active"
	}
	if filter.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, filter.Category)
		argPos++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR barcode ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.InStock {
		where += " AND stock > 0"
	}
	if filter.LowStock {
		where += " AND stock > 0 AND stock <= min_stock"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf("SELECT "+productColumns+" FROM products %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		where, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Update applies a partial update. The statement is assembled from the patch
// fields in declared order, so identical patches always produce identical SQL.
func (r *Repository) Update(ctx context.Context, id string, patch Patch, at time.Time) error {
	set := "SET updated_at = $1"
	args := []interface{}{at}
	argPos := 2

	appendField := func(column string, value interface{}) {
		set += fmt.Sprintf(", %s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	if patch.Name != nil {
		appendField("name", *patch.Name)
	}
	if patch.Price != nil {
		appendField("price", *patch.Price)
	}
	if patch.Cost != nil {
		appendField("cost", *patch.Cost)
	}
	if patch.MinStock != nil {
		appendField("min_stock", *patch.MinStock)
	}
	if patch.Category != nil {
		appendField("category", *patch.Category)
	}
	if patch.Barcode != nil {
		set += fmt.Sprintf(", barcode = NULLIF($%d, '')", argPos)
		args = append(args, *patch.Barcode)
		argPos++
	}
	if patch.Description != nil {
		appendField("description", *patch.Description)
	}
	if patch.ImageURL != nil {
		appendField("image_url", *patch.ImageURL)
	}
	if patch.IsActive != nil {
		appendField("is_active", *patch.IsActive)
	}

	args = append(args, id)
	tag, err := r.db.Exec(ctx, fmt.Sprintf("UPDATE products %s WHERE id = $%d", set, argPos), args...)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// UpdateStock writes the absolute stock value computed by the caller.
func (r *Repository) UpdateStock(ctx context.Context, id string, newStock int, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3`, newStock, at, id)
	if err != nil {
		return fmt.Errorf("catalog: update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SoftDelete marks the product inactive, preserving sale history references.
func (r *Repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("catalog: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
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
		return fmt.Errorf("catalog: insert movement: %w", err)
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrBarcodeTaken
	}
	return err
}
