package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Input is the admin create/update payload. Nil fields are left untouched on
// update; an empty expiresAt clears the expiry.
type Input struct {
	Code      *string          `json:"code"`
	Discount  *decimal.Decimal `json:"discount"`
	Type      *string          `json:"type"`
	IsActive  *bool            `json:"isActive"`
	ExpiresAt *string          `json:"expiresAt"`
}

// Quote is the result of validating a code against a subtotal.
type Quote struct {
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Discount decimal.Decimal `json:"discount"`
	Amount   decimal.Decimal `json:"amount"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

func apply(c Coupon, in Input) (Coupon, map[string]string) {
	errs := map[string]string{}
	if in.Code != nil {
		c.Code = NormalizeCode(*in.Code)
	}
	if in.Discount != nil {
		c.Discount = *in.Discount
	}
	if in.Type != nil {
		c.Type = *in.Type
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.ExpiresAt != nil {
		exp, err := ParseExpiry(*in.ExpiresAt)
		if err != nil {
			errs["expiresAt"] = "expiresAt must be a date or RFC 3339 timestamp"
		}
		c.ExpiresAt = exp
	}
	for k, v := range Validate(c) {
		errs[k] = v
	}
	return c, errs
}

func (s *Service) Create(ctx context.Context, in Input) (Coupon, map[string]string, error) {
	now := s.now()
	c, errs := apply(Coupon{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}, in)
	if len(errs) > 0 {
		return Coupon{}, errs, nil
	}
	created, err := s.repo.Create(ctx, c)
	return created, nil, err
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Coupon, map[string]string, error) {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Coupon{}, nil, err
	}
	c, errs := apply(cur, in)
	if len(errs) > 0 {
		return Coupon{}, errs, nil
	}
	c.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, c)
	return updated, nil, err
}

func (s *Service) Toggle(ctx context.Context, id string) (Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Coupon{}, err
	}
	c.IsActive = !c.IsActive
	c.UpdatedAt = s.now()
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Redeemable loads a code and checks it can be used right now.
func (s *Service) Redeemable(ctx context.Context, code string) (Coupon, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Coupon{}, err
	}
	if err := c.Usable(s.now()); err != nil {
		return Coupon{}, err
	}
	return c, nil
}

// Quote prices a code against subtotal without redeeming it.
func (s *Service) Quote(ctx context.Context, code string, subtotal decimal.Decimal) (Quote, error) {
	c, err := s.Redeemable(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Code: c.Code, Type: c.Type, Discount: c.Discount, Amount: c.Apply(subtotal)}, nil
}
