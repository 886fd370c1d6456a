package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/address"
	"github.com/wichananm65/techstore-backend/internal/coupon"
	"github.com/wichananm65/techstore-backend/internal/money"
	"github.com/wichananm65/techstore-backend/internal/product"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

const DefaultMaxInstallments = 12

type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]product.Product, error)
}

type Coupons interface {
	Redeemable(ctx context.Context, code string) (coupon.Coupon, error)
}

type Carts interface {
	RemoveProducts(ctx context.Context, userID string, productIDs []string) error
}

type Addresses interface {
	Get(ctx context.Context, userID, id string) (address.Address, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, data any)
}

// Deps are the collaborators checkout needs besides storage. Carts,
// Addresses and Events are optional.
type Deps struct {
	Catalog         Catalog
	Coupons         Coupons
	Carts           Carts
	Addresses       Addresses
	Events          Publisher
	Log             *slog.Logger
	MaxInstallments int
}

type Service struct {
	repo Repository
	deps Deps
	now  func() time.Time
}

func NewService(repo Repository, deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.MaxInstallments < 1 {
		deps.MaxInstallments = DefaultMaxInstallments
	}
	return &Service{repo: repo, deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

type LineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceInput struct {
	Items          []LineInput      `json:"items"`
	PaymentMethod  string           `json:"paymentMethod"`
	Installments   int              `json:"installments"`
	Address        string           `json:"address"`
	AddressID      string           `json:"addressId"`
	CouponCode     string           `json:"couponCode"`
	Total          *decimal.Decimal `json:"total"`
	IdempotencyKey string           `json:"idempotencyKey"`
}

// validate checks the request shape and normalizes installments.
func (in *PlaceInput) validate(maxInstallments int) map[string]string {
	errs := map[string]string{}
	if len(in.Items) == 0 {
		errs["items"] = "at least one item is required"
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			errs[fmt.Sprintf("items[%d].productId", i)] = "productId is required"
		}
		if it.Quantity < 1 {
			errs[fmt.Sprintf("items[%d].quantity", i)] = "quantity must be at least 1"
		}
	}
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !paymentMethods[in.PaymentMethod] {
		errs["paymentMethod"] = "paymentMethod must be one of credit, debit, cash, pix, boleto"
	}
	if in.PaymentMethod == PaymentCredit {
		if in.Installments == 0 {
			in.Installments = 1
		}
		if in.Installments < 1 || in.Installments > maxInstallments {
			errs["installments"] = fmt.Sprintf("installments must be between 1 and %d", maxInstallments)
		}
	} else {
		in.Installments = 1
	}
	in.Address = strings.TrimSpace(in.Address)
	if in.Address == "" && in.AddressID == "" {
		errs["address"] = "address is required"
	}
	if in.Total != nil && in.Total.IsNegative() {
		errs["total"] = "total must be >= 0"
	}
	return errs
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(lines []LineInput) []LineInput {
	out := make([]LineInput, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Place prices and stores an order for userID. created is false when the
// idempotency key matched an earlier order, which is returned unchanged.
func (s *Service) Place(ctx context.Context, userID string, in PlaceInput) (Order, bool, map[string]string, error) {
	if ves := in.validate(s.deps.MaxInstallments); len(ves) > 0 {
		return Order{}, false, ves, nil
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.IdempotencyKey != "" {
		prev, err := s.repo.GetByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err == nil {
			return prev, false, nil, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Order{}, false, nil, err
		}
	}
	lines := mergeLines(in.Items)

	addr := in.Address
	if addr == "" {
		if s.deps.Addresses == nil {
			return Order{}, false, map[string]string{"address": "address is required"}, nil
		}
		a, err := s.deps.Addresses.Get(ctx, userID, in.AddressID)
		if errors.Is(err, address.ErrNotFound) {
			return Order{}, false, map[string]string{"addressId": "address not found"}, nil
		}
		if err != nil {
			return Order{}, false, nil, err
		}
		addr = a.String()
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.deps.Catalog.GetMany(ctx, ids)
	if err != nil {
		return Order{}, false, nil, err
	}

	items := make([]Item, 0, len(lines))
	subtotal := decimal.Zero
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return Order{}, false, nil, fmt.Errorf("product %s: %w", l.ProductID, product.ErrNotFound)
		}
		if l.Quantity > p.Stock {
			return Order{}, false, nil, fmt.Errorf("product %s: %w", p.ID, product.ErrInsufficientStock)
		}
		items = append(items, Item{ProductID: p.ID, Name: p.Name, Quantity: l.Quantity, Price: p.Price})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = money.Round(subtotal)

	discount := decimal.Zero
	code := coupon.NormalizeCode(in.CouponCode)
	if code != "" {
		cp, err := s.deps.Coupons.Redeemable(ctx, code)
		switch {
		case errors.Is(err, coupon.ErrNotFound), errors.Is(err, coupon.ErrInactive), errors.Is(err, coupon.ErrExpired):
			return Order{}, false, nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
		case err != nil:
			return Order{}, false, nil, err
		}
		discount = cp.Apply(subtotal)
		code = cp.Code
	}
	total := money.NonNegative(money.Round(subtotal.Sub(discount)))

	if in.Total != nil && !money.Close(*in.Total, total) {
		return Order{}, false, nil, fmt.Errorf("%w: expected %s", ErrTotalMismatch, total.StringFixed(2))
	}

	now := s.now()
	o := Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          items,
		Subtotal:       subtotal,
		Discount:       discount,
		Total:          total,
		PaymentMethod:  in.PaymentMethod,
		Installments:   in.Installments,
		Address:        addr,
		CouponCode:     code,
		Status:         StatusPending,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, created, err := s.repo.Create(ctx, o)
	if err != nil {
		return Order{}, false, nil, err
	}
	if !created {
		return stored, false, nil, nil
	}

	if s.deps.Carts != nil {
		if err := s.deps.Carts.RemoveProducts(ctx, userID, ids); err != nil {
			s.deps.Log.Warn("failed to prune cart after checkout", "order_id", stored.ID, "user_id", userID, "error", err)
		}
	}
	s.publish(ctx, webhook.EventNewOrder, stored)
	s.deps.Log.Info("order placed", "order_id", stored.ID, "user_id", userID, "total", stored.Total.StringFixed(2))
	return stored, true, nil, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetForUser returns an order owned by userID. Admins may read any order.
func (s *Service) GetForUser(ctx context.Context, userID, id string, isAdmin bool) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !isAdmin && o.UserID != userID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status string) ([]Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, status)
}

type StatusChange struct {
	Order          Order  `json:"order"`
	PreviousStatus string `json:"previousStatus"`
}

// UpdateStatus applies an admin status change.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return Order{}, ErrInvalidStatus
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, status) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}
	updated, err := s.repo.UpdateStatus(ctx, o, status, s.now())
	if err != nil {
		return Order{}, err
	}
	s.publish(ctx, webhook.EventOrderStatusChanged, StatusChange{Order: updated, PreviousStatus: o.Status})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, event string, data any) {
	if s.deps.Events != nil {
		s.deps.Events.Publish(ctx, event, data)
	}
}
