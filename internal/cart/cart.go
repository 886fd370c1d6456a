package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one product in a stored cart.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the stored state of one user's cart.
type Cart struct {
	UserID    string    `json:"userId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is a cart line joined with current product data.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Stock     int             `json:"stock"`
}

// View is the priced cart returned to clients.
type View struct {
	Items     []Item          `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

// StaleCart is an abandoned cart as reported to webhooks.
type StaleCart struct {
	UserID    string    `json:"userId"`
	UpdatedAt time.Time `json:"updatedAt"`
	View
}
