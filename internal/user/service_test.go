package user

import (
	"context"
	"testing"
	"time"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository(nil)
	s := newTestService(repo, nil)

	created, err := s.EnsureAdmin(ctx, "admin@techstore.com", "admin123")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v %v", created, err)
	}
	u, err := repo.GetByEmail(ctx, "admin@techstore.com")
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsAdmin || !u.NeedsPasswordChange {
		t.Fatalf("bootstrap admin flags wrong: %+v", u)
	}

	created, err = s.EnsureAdmin(ctx, "ADMIN@techstore.com", "other")
	if err != nil || created {
		t.Fatalf("second call must be a no-op, got %v %v", created, err)
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected a single account, got %d", len(all))
	}
}

func TestEnsureAdmin_PromotesExistingAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository([]User{{ID: "u1", Email: "boss@techstore.com"}})
	s := newTestService(repo, nil)

	created, err := s.EnsureAdmin(ctx, "boss@techstore.com", "pw")
	if err != nil || created {
		t.Fatalf("unexpected %v %v", created, err)
	}
	u, _ := repo.GetByID(ctx, "u1")
	if !u.IsAdmin {
		t.Fatalf("expected promotion")
	}
}

func TestBirthdays(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository([]User{
		{ID: "a", BirthDate: "1990-05-17"},
		{ID: "b", BirthDate: "1985-05-18"},
		{ID: "c", BirthDate: "2000-02-29"},
		{ID: "d", BirthDate: "1999-02-28"},
		{ID: "e"},
	})
	s := newTestService(repo, nil)

	got, err := s.Birthdays(ctx, time.Date(2025, 5, 17, 9, 0, 0, 0, time.UTC))
	if err != nil || len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected birthdays %+v %v", got, err)
	}

	// 2025 is not a leap year: Feb 29 birthdays move to Feb 28
	got, _ = s.Birthdays(ctx, time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC))
	if len(got) != 2 {
		t.Fatalf("expected leapling on Feb 28, got %+v", got)
	}

	got, _ = s.Birthdays(ctx, time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC))
	if len(got) != 1 || got[0].ID != "d" {
		t.Fatalf("leap year should not include Feb 29 on Feb 28, got %+v", got)
	}
}
