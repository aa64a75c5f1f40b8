package ledger

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// TypeSale records stock leaving through a sale.
	TypeSale MovementType = "sale"
	// TypeAdjustment records manual corrections and sale reversals.
	TypeAdjustment MovementType = "adjustment"
	// TypeRestock records replenishment.
	TypeRestock MovementType = "restock"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case TypeSale, TypeAdjustment, TypeRestock:
		return true
	}
	return false
}

// Movement is a single immutable entry in the stock ledger. Every change to a
// product's stock produces exactly one entry carrying the before and after
// quantities, so the ledger reconciles the full stock history.
type Movement struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	Type          MovementType `json:"movement_type"`
	Quantity      int          `json:"quantity"`
	PreviousStock int          `json:"previous_stock"`
	NewStock      int          `json:"new_stock"`
	ReferenceID   string       `json:"reference_id,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedBy     string       `json:"created_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Filter narrows ledger listings.
type Filter struct {
	ProductID string
	Type      MovementType
	Page      int
	PerPage   int
}

// ErrInvalidMovementType indicates an unknown movement type.
var ErrInvalidMovementType = errors.New("ledger: invalid movement type")
