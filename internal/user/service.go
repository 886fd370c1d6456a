package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/techstore-backend/internal/webhook"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Publisher delivers store events to subscribed webhooks.
type Publisher interface {
	Publish(ctx context.Context, event string, data any)
}

type Service struct {
	repo     Repository
	events   Publisher
	log      *slog.Logger
	now      func() time.Time
	hashCost int
}

func NewService(repo Repository, events Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		hashCost: bcrypt.DefaultCost,
	}
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

// Validate reports field errors keyed by JSON name.
func (in RegisterInput) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "name is required"
	}
	if strings.TrimSpace(in.Email) == "" {
		errs["email"] = "email is required"
	} else if !strings.Contains(in.Email, "@") {
		errs["email"] = "email is invalid"
	}
	if in.Password == "" {
		errs["password"] = "password is required"
	} else if len(in.Password) < minPasswordLength {
		errs["password"] = ErrWeakPassword.Error()
	}
	if in.BirthDate != "" && !validBirthDate(in.BirthDate) {
		errs["birthDate"] = "birthDate must be YYYY-MM-DD"
	}
	return errs
}

func validBirthDate(s string) bool {
	_, err := time.Parse(BirthDateLayout, s)
	return err == nil
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	created, err := s.repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hashed,
		Phone:        strings.TrimSpace(in.Phone),
		BirthDate:    in.BirthDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, err
	}

	s.log.Info("user registered", slog.String("user_id", created.ID))
	if s.events != nil {
		s.events.Publish(ctx, webhook.EventNewUser, created)
	}
	return created, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// IsAdmin reports whether id names an existing administrator.
func (s *Service) IsAdmin(ctx context.Context, id string) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Create is the admin path: the caller chooses the admin flag.
func (s *Service) Create(ctx context.Context, in RegisterInput, isAdmin bool) (User, error) {
	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	return s.repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hashed,
		Phone:        strings.TrimSpace(in.Phone),
		BirthDate:    in.BirthDate,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Update applies a partial patch. It returns field errors instead of
// persisting when the merged record is invalid.
func (s *Service) Update(ctx context.Context, id string, p Patch) (User, map[string]string, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, nil, err
	}

	errs := map[string]string{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			errs["name"] = "name cannot be empty"
		}
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		if !strings.Contains(*p.Email, "@") {
			errs["email"] = "email is invalid"
		}
		u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Phone != nil {
		u.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.BirthDate != nil {
		if *p.BirthDate != "" && !validBirthDate(*p.BirthDate) {
			errs["birthDate"] = "birthDate must be YYYY-MM-DD"
		}
		u.BirthDate = *p.BirthDate
	}
	if p.Avatar != nil {
		if *p.Avatar == "" {
			u.Avatar = nil
		} else {
			v := *p.Avatar
			u.Avatar = &v
		}
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.Password != nil && *p.Password != "" {
		if len(*p.Password) < minPasswordLength {
			errs["password"] = ErrWeakPassword.Error()
		} else {
			hashed, err := s.hash(*p.Password)
			if err != nil {
				return User{}, nil, err
			}
			u.PasswordHash = hashed
		}
	}
	if len(errs) > 0 {
		return User{}, errs, nil
	}

	u.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, u)
	return updated, nil, err
}

// Delete removes a user. Admins cannot remove their own account.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id, current, next string) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return User{}, ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	hashed, err := s.hash(next)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = hashed
	u.NeedsPasswordChange = false
	u.UpdatedAt = s.now()
	return s.repo.Update(ctx, u)
}

// EnsureAdmin creates the bootstrap administrator when the email is unknown
// and promotes an existing account otherwise. It reports whether a new
// account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return false, nil
		}
		existing.IsAdmin = true
		existing.UpdatedAt = s.now()
		_, err = s.repo.Update(ctx, existing)
		return false, err
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	hashed, err := s.hash(password)
	if err != nil {
		return false, err
	}
	now := s.now()
	_, err = s.repo.Create(ctx, User{
		ID:                  uuid.NewString(),
		Name:                "Administrator",
		Email:               strings.ToLower(email),
		PasswordHash:        hashed,
		IsAdmin:             true,
		NeedsPasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return false, err
	}
	s.log.Info("admin account created", slog.String("email", email))
	return true, nil
}

// Birthdays lists users born on the month and day of now. In non-leap years
// users born on February 29th are included on February 28th.
func (s *Service) Birthdays(ctx context.Context, now time.Time) ([]User, error) {
	month, day := int(now.Month()), now.Day()
	users, err := s.repo.ListByBirthday(ctx, month, day)
	if err != nil {
		return nil, err
	}
	if month == 2 && day == 28 && !isLeap(now.Year()) {
		leaplings, err := s.repo.ListByBirthday(ctx, 2, 29)
		if err != nil {
			return nil, err
		}
		users = append(users, leaplings...)
	}
	return users, nil
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
