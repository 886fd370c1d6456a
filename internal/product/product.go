package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Inactive products stay in the table for order
// history but are hidden from the public catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Filter narrows List results.
type Filter struct {
	Category        string
	Query           string
	IncludeInactive bool
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
	IsActive    *bool            `json:"isActive"`
}

// Apply copies the non-nil fields of the patch onto p.
func (pt Patch) Apply(p Product) Product {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.Image != nil {
		p.Image = *pt.Image
	}
	if pt.Category != nil {
		p.Category = *pt.Category
	}
	if pt.Stock != nil {
		p.Stock = *pt.Stock
	}
	if pt.IsActive != nil {
		p.IsActive = *pt.IsActive
	}
	return p
}
