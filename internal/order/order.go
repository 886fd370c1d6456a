package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

const (
	PaymentCredit = "credit"
	PaymentDebit  = "debit"
	PaymentCash   = "cash"
	PaymentPix    = "pix"
	PaymentBoleto = "boleto"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrTotalMismatch     = errors.New("order total does not match current prices")
)

var paymentMethods = map[string]bool{
	PaymentCredit: true,
	PaymentDebit:  true,
	PaymentCash:   true,
	PaymentPix:    true,
	PaymentBoleto: true,
}

var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusDelivered, StatusCancelled},
}

// Item is a priced order line. Name and Price are frozen at checkout.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Items          []Item          `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"paymentMethod"`
	Installments   int             `json:"installments"`
	Address        string          `json:"address"`
	CouponCode     string          `json:"couponCode,omitempty"`
	Status         string          `json:"status"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// restock returns the positive stock deltas that undo this order.
func (o Order) restock() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}
