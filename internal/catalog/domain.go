package catalog

import (
	"errors"
	"time"
)

// Product holds current stock, price and metadata for a catalog item.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Cost        float64   `json:"cost"`
	Stock       int       `json:"stock"`
	MinStock    int       `json:"min_stock"`
	Category    string    `json:"category"`
	Barcode     string    `json:"barcode,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LowStock reports whether the product is at or under its reorder threshold
// while still having units on hand.
func (p Product) LowStock() bool {
	return p.Stock > 0 && p.Stock <= p.MinStock
}

// OutOfStock reports whether the product has no units on hand. A product is
// either out of stock or low stock, never both.
func (p Product) OutOfStock() bool {
	return p.Stock == 0
}

// CreateInput describes a new product.
type CreateInput struct {
	Name        string
	Price       float64
	Cost        float64
	Stock       int
	MinStock    int
	Category    string
	Barcode     string
	Description string
	ImageURL    string
}

// Patch is a partial update: a nil field is absent and leaves the stored
// value untouched; a non-nil field writes, including zero values. Stock is
// deliberately not patchable, it only moves through AdjustStock, Restock and
// the sales engine so every change lands in the ledger.
type Patch struct {
	Name        *string
	Price       *float64
	Cost        *float64
	MinStock    *int
	Category    *string
	Barcode     *string
	Description *string
	ImageURL    *string
	IsActive    *bool
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category   string
	Search     string
	InStock    bool
	LowStock   bool
	ActiveOnly bool
	Page       int
	PerPage    int
}

var (
	// ErrProductNotFound indicates an unknown product id or barcode.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrBarcodeTaken indicates a barcode collision with an existing record,
	// active or not.
	ErrBarcodeTaken = errors.New("catalog: barcode already registered")
	// ErrNegativeStock is returned when a stock change would drop below zero.
	ErrNegativeStock = errors.New("catalog: stock cannot go negative")
	// ErrInvalidQuantity indicates a zero or wrongly signed quantity.
	ErrInvalidQuantity = errors.New("catalog: invalid quantity")
)
