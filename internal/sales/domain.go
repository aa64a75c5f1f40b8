package sales

import (
	"errors"
	"fmt"
	"time"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Sale is the header of a completed ticket. Amounts are stored exactly as
// submitted by the terminal; the engine never recomputes totals.
type Sale struct {
	ID            string        `json:"id"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Discount      float64       `json:"discount"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CashierID     string        `json:"cashier_id"`
	CashierName   string        `json:"cashier_name"`
	CustomerName  string        `json:"customer_name,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	DailyNumber   int           `json:"daily_number"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []SaleItem    `json:"items,omitempty"`
}

// SaleItem is one line of a sale. Product name and prices are snapshots taken
// at sale time and never follow later catalog changes.
type SaleItem struct {
	ID          string  `json:"id"`
	SaleID      string  `json:"sale_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
}

// CreateInput describes a sale submission.
type CreateInput struct {
	Items         []ItemInput
	Subtotal      float64
	Tax           float64
	Discount      float64
	Total         float64
	PaymentMethod PaymentMethod
	CashierID     string
	CashierName   string
	CustomerName  string
	Notes         string
	// ClientRef, when set, makes the submission idempotent: a replay with the
	// same ref is rejected instead of producing a second sale.
	ClientRef string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	From          time.Time
	To            time.Time
	PaymentMethod PaymentMethod
	CashierID     string
	Active        *bool
	Page          int
	PerPage       int
}

var (
	// ErrEmptySale indicates a submission without line items.
	ErrEmptySale = errors.New("sales: at least one item required")
	// ErrInvalidTotal indicates a non-positive total.
	ErrInvalidTotal = errors.New("sales: total must be greater than zero")
	// ErrInvalidPayment indicates an unknown payment method.
	ErrInvalidPayment = errors.New("sales: invalid payment method")
	// ErrInvalidItem indicates a malformed line item.
	ErrInvalidItem = errors.New("sales: invalid line item")
	// ErrSaleNotFound indicates an unknown sale id.
	ErrSaleNotFound = errors.New("sales: sale not found")
	// ErrSaleCancelled indicates the sale is already inactive.
	ErrSaleCancelled = errors.New("sales: sale already cancelled")
)

// InsufficientStockError reports a line item requesting more units than the
// product has on hand.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("sales: stock insuficiente para %s. Disponible: %d, Solicitado: %d",
		e.ProductName, e.Available, e.Requested)
}
