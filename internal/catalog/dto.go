package catalog

// createRequest is the JSON body accepted by POST /products.
type createRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Price       float64 `json:"price" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	MinStock    int     `json:"min_stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
	Barcode     string  `json:"barcode" validate:"omitempty,max=64"`
	Description string  `json:"description" validate:"omitempty,max=1000"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
}

func (r createRequest) toInput() CreateInput {
	return CreateInput{
		Name:        r.Name,
		Price:       r.Price,
		Cost:        r.Cost,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
		Category:    r.Category,
		Barcode:     r.Barcode,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

// updateRequest is the JSON body accepted by PATCH /products/{id}. Absent
// fields stay untouched; present fields overwrite, zero values included.
type updateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost" validate:"omitempty,gte=0"`
	MinStock    *int     `json:"min_stock" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Barcode     *string  `json:"barcode" validate:"omitempty,max=64"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
	IsActive    *bool    `json:"is_active"`
}

func (r updateRequest) toPatch() Patch {
	return Patch{
		Name:        r.Name,
		Price:       r.Price,
		Cost:        r.Cost,
		MinStock:    r.MinStock,
		Category:    r.Category,
		Barcode:     r.Barcode,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
	}
}

// adjustRequest applies a signed stock correction.
type adjustRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// restockRequest replenishes stock.
type restockRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"omitempty,max=500"`
}
