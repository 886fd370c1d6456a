package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/money"
)

const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

var (
	ErrNotFound   = errors.New("coupon not found")
	ErrInactive   = errors.New("coupon is inactive")
	ErrExpired    = errors.New("coupon has expired")
	ErrCodeExists = errors.New("coupon code already exists")
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount code. Codes are stored upper-case.
type Coupon struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	Type      string          `json:"type"`
	IsActive  bool            `json:"isActive"`
	ExpiresAt *time.Time      `json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NormalizeCode trims and upper-cases a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable reports why the coupon cannot be redeemed at now, or nil.
func (c Coupon) Usable(now time.Time) error {
	if !c.IsActive {
		return ErrInactive
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// Apply returns the discount amount for subtotal, rounded to cents and never
// larger than subtotal.
func (c Coupon) Apply(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		amount = subtotal.Mul(c.Discount).Div(hundred)
	case TypeFixed:
		amount = c.Discount
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return money.NonNegative(money.Round(amount))
}

// Validate reports field errors keyed by JSON name.
func Validate(c Coupon) map[string]string {
	errs := map[string]string{}
	if c.Code == "" {
		errs["code"] = "code is required"
	}
	switch c.Type {
	case TypePercentage:
		if !c.Discount.IsPositive() || c.Discount.GreaterThan(hundred) {
			errs["discount"] = "percentage discount must be in (0, 100]"
		}
	case TypeFixed:
		if !c.Discount.IsPositive() {
			errs["discount"] = "fixed discount must be > 0"
		}
	default:
		errs["type"] = "type must be percentage or fixed"
	}
	return errs
}

// ParseExpiry accepts RFC 3339 timestamps or plain dates. A plain date
// expires at the end of that day (UTC).
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	end := d.AddDate(0, 0, 1)
	return &end, nil
}
