package sales

// createRequest is the JSON body accepted by POST /sales.
type createRequest struct {
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal      float64       `json:"subtotal" validate:"gte=0"`
	Tax           float64       `json:"tax" validate:"gte=0"`
	Discount      float64       `json:"discount" validate:"gte=0"`
	Total         float64       `json:"total" validate:"gt=0"`
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=cash card transfer"`
	CustomerName  string        `json:"customer_name" validate:"omitempty,max=120"`
	Notes         string        `json:"notes" validate:"omitempty,max=500"`
	ClientRef     string        `json:"client_ref" validate:"omitempty,max=64"`
}

type itemRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	ProductName string  `json:"product_name" validate:"omitempty,max=200"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	TotalPrice  float64 `json:"total_price" validate:"gte=0"`
}

func (r createRequest) toInput(cashierID, cashierName string) CreateInput {
	input := CreateInput{
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		Discount:      r.Discount,
		Total:         r.Total,
		PaymentMethod: PaymentMethod(r.PaymentMethod),
		CashierID:     cashierID,
		CashierName:   cashierName,
		CustomerName:  r.CustomerName,
		Notes:         r.Notes,
		ClientRef:     r.ClientRef,
	}
	for _, it := range r.Items {
		input.Items = append(input.Items, ItemInput{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return input
}
