package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs aggregate queries over products, sales and sale items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InventoryStats computes catalog counters over active products only.
func (r *Repository) InventoryStats(ctx context.Context) (InventoryStats, error) {
	var stats InventoryStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE stock = 0),
			COUNT(*) FILTER (WHERE stock > 0 AND stock <= min_stock),
			COALESCE(SUM(stock * price), 0)
		FROM products
		WHERE is_active`).
		Scan(&stats.TotalProducts, &stats.OutOfStock, &stats.LowStock, &stats.InventoryValue)
	if err != nil {
		return InventoryStats{}, fmt.Errorf("reports: inventory stats: %w", err)
	}
	return stats, nil
}

// SalesMetrics aggregates sale headers inside the range. Active and
// cancelled sales are aggregated in one pass using filtered counters.
func (r *Repository) SalesMetrics(ctx context.Context, rng Range) (SalesMetrics, error) {
	where, args := rangeClause(rng)
	var m SalesMetrics
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE is_active), 0),
			COUNT(*) FILTER (WHERE is_active),
			COALESCE(AVG(total) FILTER (WHERE is_active), 0),
			COUNT(*) FILTER (WHERE NOT is_active),
			COALESCE(SUM(tax) FILTER (WHERE is_active), 0),
			COALESCE(SUM(discount) FILTER (WHERE is_active), 0),
			COALESCE((
				SELECT SUM(si.quantity)
				FROM sale_items si
				JOIN sales s2 ON s2.id = si.sale_id
				`+whereAlias(rng, "s2")+` AND s2.is_active
			), 0)
		FROM sales
		`+where, args...).
		Scan(&m.Revenue, &m.SaleCount, &m.AverageSale, &m.Cancelled, &m.TotalTax, &m.TotalDiscount, &m.ItemsSold)
	if err != nil {
		return SalesMetrics{}, fmt.Errorf("reports: sales metrics: %w", err)
	}
	return m, nil
}

// TopProducts ranks products by units sold over active sales in the range.
// Ties share a quantity and come back in arbitrary order.
func (r *Repository) TopProducts(ctx context.Context, rng Range, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	where, args := rangeClauseAlias(rng, "s")
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT si.product_id, si.product_name, SUM(si.quantity), SUM(si.total_price)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		%s AND s.is_active
		GROUP BY si.product_id, si.product_name
		ORDER BY SUM(si.quantity) DESC
		LIMIT $%d`, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("reports: top products: %w", err)
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.Quantity, &tp.Revenue); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// PaymentBreakdown aggregates active sales per payment method in the range.
func (r *Repository) PaymentBreakdown(ctx context.Context, rng Range) ([]PaymentBreakdown, error) {
	where, args := rangeClause(rng)
	rows, err := r.pool.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		`+where+` AND is_active
		GROUP BY payment_method
		ORDER BY payment_method`, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: payment breakdown: %w", err)
	}
	defer rows.Close()

	var out []PaymentBreakdown
	for rows.Next() {
		var pb PaymentBreakdown
		if err := rows.Scan(&pb.PaymentMethod, &pb.SaleCount, &pb.Revenue); err != nil {
			return nil, err
		}
		out = append(out, pb)
	}
	return out, rows.Err()
}

func rangeClause(rng Range) (string, []interface{}) {
	return rangeClauseAlias(rng, "")
}

func rangeClauseAlias(rng Range, alias string) (string, []interface{}) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	where := "WHERE TRUE"
	var args []interface{}
	if !rng.From.IsZero() {
		args = append(args, rng.From)
		where += fmt.Sprintf(" AND %screated_at >= $%d", prefix, len(args))
	}
	if !rng.To.IsZero() {
		args = append(args, rng.To)
		where += fmt.Sprintf(" AND %screated_at < $%d", prefix, len(args))
	}
	return where, args
}

func whereAlias(rng Range, alias string) string {
	// Correlated subquery reuses the outer query's positional args.
	where := "WHERE TRUE"
	n := 0
	if !rng.From.IsZero() {
		n++
		where += fmt.Sprintf(" AND %s.created_at >= $%d", alias, n)
	}
	if !rng.To.IsZero() {
		n++
		where += fmt.Sprintf(" AND %s.created_at < $%d", alias, n)
	}
	return where
}
