package webhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo       Repository
	dispatcher *Dispatcher
	now        func() time.Time
}

func NewService(repo Repository, dispatcher *Dispatcher) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context) ([]Webhook, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Webhook, error) {
	return s.repo.GetByID(ctx, id)
}

func apply(w Webhook, in Input) Webhook {
	if in.URL != nil {
		w.URL = strings.TrimSpace(*in.URL)
	}
	if in.Events != nil {
		w.Events = normalizeEvents(in.Events)
	}
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	}
	if in.Secret != nil {
		w.Secret = *in.Secret
	}
	return w
}

// Create validates and stores a new hook. New hooks are active unless the
// payload says otherwise.
func (s *Service) Create(ctx context.Context, in Input) (Webhook, map[string]string, error) {
	now := s.now()
	w := apply(Webhook{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}, in)
	if ves := Validate(w); len(ves) > 0 {
		return Webhook{}, ves, nil
	}
	created, err := s.repo.Create(ctx, w)
	return created, nil, err
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Webhook, map[string]string, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Webhook{}, nil, err
	}
	w := apply(current, in)
	if ves := Validate(w); len(ves) > 0 {
		return Webhook{}, ves, nil
	}
	w.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, w)
	return updated, nil, err
}

func (s *Service) Toggle(ctx context.Context, id string) (Webhook, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Webhook{}, err
	}
	w.IsActive = !w.IsActive
	w.UpdatedAt = s.now()
	return s.repo.Update(ctx, w)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Test sends a ping to the hook synchronously, regardless of its active flag
// or subscriptions.
func (s *Service) Test(ctx context.Context, id string) (Result, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher.Deliver(ctx, w, EventPing, map[string]any{
		"webhookId": w.ID,
		"message":   "Test webhook from TechStore",
	}), nil
}
