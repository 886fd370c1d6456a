package address

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrLineRequired = errors.New("line is required")

// Input is the create/update payload.
type Input struct {
	Label string `json:"label"`
	Line  string `json:"line"`
	Phone string `json:"phone"`
}

// Service orchestrates address book operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, userID string) ([]Address, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Address, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Add(ctx context.Context, userID string, in Input) (Address, error) {
	if strings.TrimSpace(in.Line) == "" {
		return Address{}, ErrLineRequired
	}
	now := s.now()
	return s.repo.Create(ctx, Address{
		ID:        uuid.NewString(),
		UserID:    userID,
		Label:     strings.TrimSpace(in.Label),
		Line:      strings.TrimSpace(in.Line),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Address, error) {
	if strings.TrimSpace(in.Line) == "" {
		return Address{}, ErrLineRequired
	}
	cur, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Address{}, err
	}
	cur.Label = strings.TrimSpace(in.Label)
	cur.Line = strings.TrimSpace(in.Line)
	cur.Phone = strings.TrimSpace(in.Phone)
	cur.UpdatedAt = s.now()
	return s.repo.Update(ctx, cur)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
