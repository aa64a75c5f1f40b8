package reports

import "time"

// InventoryStats summarises the current state of the catalog.
type InventoryStats struct {
	TotalProducts  int     `json:"total_products"`
	OutOfStock     int     `json:"out_of_stock"`
	LowStock       int     `json:"low_stock"`
	InventoryValue float64 `json:"inventory_value"`
}

// SalesMetrics aggregates sale headers over a period. Cancelled sales are
// excluded from revenue but counted separately.
type SalesMetrics struct {
	Revenue      float64 `json:"revenue"`
	SaleCount    int     `json:"sale_count"`
	AverageSale  float64 `json:"average_sale"`
	Cancelled    int     `json:"cancelled"`
	ItemsSold    int     `json:"items_sold"`
	TotalTax     float64 `json:"total_tax"`
	TotalDiscount float64 `json:"total_discount"`
}

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// PaymentBreakdown aggregates revenue per payment method.
type PaymentBreakdown struct {
	PaymentMethod string  `json:"payment_method"`
	SaleCount     int     `json:"sale_count"`
	Revenue       float64 `json:"revenue"`
}

// Overview is the dashboard payload combining today's sales, the current
// inventory state and the best sellers of the period.
type Overview struct {
	Inventory   InventoryStats     `json:"inventory"`
	Today       SalesMetrics       `json:"today"`
	TopProducts []TopProduct       `json:"top_products"`
	Payments    []PaymentBreakdown `json:"payments"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Range bounds a sales report. A zero From or To leaves that side open.
type Range struct {
	From time.Time
	To   time.Time
}
