package cart

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresListStale_GroupsByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t1 := cutoff.Add(-72 * time.Hour)
	t2 := cutoff.Add(-48 * time.Hour)
	mock.ExpectQuery("HAVING MAX\\(updated_at\\) < \\$1").WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "product_id", "quantity", "updated_at"}).
			AddRow("a", "p1", 1, t1).
			AddRow("a", "p2", 2, t2).
			AddRow("b", "p1", 3, t1))

	carts, err := NewPostgresRepository(db).ListStale(context.Background(), cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(carts) != 2 || len(carts[0].Lines) != 2 || !carts[0].UpdatedAt.Equal(t2) || carts[1].Lines[0].Quantity != 3 {
		t.Fatalf("unexpected carts %+v", carts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresSet_NonPositiveDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM carts WHERE user_id = \\$1 AND product_id = \\$2").
		WithArgs("u1", "p1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresRepository(db).Set(context.Background(), "u1", "p1", 0, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
