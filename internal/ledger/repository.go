package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the stock_movements table. Rows are written by the sales
// and catalog transaction repositories so each append commits atomically with
// the stock change it records; this package never updates or deletes them.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns movements newest first, optionally filtered by product and type.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Movement, int, error) {
	where := "WHERE TRUE"
	var args []interface{}
	argPos := 1

	if filter.ProductID != "" {
		where += fmt.Sprintf(" AND product_id = $%d", argPos)
		args = append(args, filter.ProductID)
		argPos++
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND movement_type = $%d", argPos)
		args = append(args, string(filter.Type))
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_movements "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count movements: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`
		SELECT id, product_id, movement_type, quantity, previous_stock, new_stock,
		       COALESCE(reference_id, ''), notes, COALESCE(created_by, ''), created_at
		FROM stock_movements %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var mv Movement
		var typ string
		if err := rows.Scan(&mv.ID, &mv.ProductID, &typ, &mv.Quantity, &mv.PreviousStock, &mv.NewStock,
			&mv.ReferenceID, &mv.Notes, &mv.CreatedBy, &mv.CreatedAt); err != nil {
			return nil, 0, err
		}
		mv.Type = MovementType(typ)
		movements = append(movements, mv)
	}
	return movements, total, rows.Err()
}
