package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal string
		want     string
	}{
		{name: "percentage", coupon: Coupon{Type: TypePercentage, Discount: d("10")}, subtotal: "1299.99", want: "130"},
		{name: "percentage rounds to cents", coupon: Coupon{Type: TypePercentage, Discount: d("15")}, subtotal: "33.33", want: "5"},
		{name: "fixed", coupon: Coupon{Type: TypeFixed, Discount: d("50")}, subtotal: "299.99", want: "50"},
		{name: "fixed capped at subtotal", coupon: Coupon{Type: TypeFixed, Discount: d("500")}, subtotal: "299.99", want: "299.99"},
		{name: "full percentage", coupon: Coupon{Type: TypePercentage, Discount: d("100")}, subtotal: "10.50", want: "10.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.Apply(d(tt.subtotal))
			if !got.Equal(d(tt.want)) {
				t.Fatalf("Apply = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if err := (Coupon{IsActive: true}).Usable(now); err != nil {
		t.Errorf("no expiry should be usable: %v", err)
	}
	if err := (Coupon{IsActive: true, ExpiresAt: &future}).Usable(now); err != nil {
		t.Errorf("future expiry should be usable: %v", err)
	}
	if err := (Coupon{IsActive: true, ExpiresAt: &past}).Usable(now); err != ErrExpired {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	if err := (Coupon{IsActive: true, ExpiresAt: &now}).Usable(now); err != ErrExpired {
		t.Errorf("expiry instant itself is expired, got %v", err)
	}
	if err := (Coupon{IsActive: false}).Usable(now); err != ErrInactive {
		t.Errorf("expected ErrInactive, got %v", err)
	}
}

func TestParseExpiry(t *testing.T) {
	got, err := ParseExpiry("2025-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("date-only expiry should end the day, got %s", got)
	}
	if got, _ := ParseExpiry(""); got != nil {
		t.Fatalf("empty clears expiry")
	}
	if _, err := ParseExpiry("31/12/2025"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func makeApp(repo Repository) *fiber.App {
	h := NewHandler(NewService(repo))
	app := fiber.New()
	h.RegisterPublicRoutes(app.Group("/api"))
	h.RegisterAdminRoutes(app.Group("/api/admin"))
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestValidateEndpoint(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	repo := NewInMemoryRepository([]Coupon{
		{ID: "1", Code: "DESCONTO10", Type: TypePercentage, Discount: d("10"), IsActive: true},
		{ID: "2", Code: "OFF", Type: TypeFixed, Discount: d("5"), IsActive: false},
		{ID: "3", Code: "OLD", Type: TypeFixed, Discount: d("5"), IsActive: true, ExpiresAt: &past},
	})
	app := makeApp(repo)

	res, _ := app.Test(jsonRequest("POST", "/api/coupons/validate", `{"code":"desconto10","subtotal":200}`))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var q Quote
	_ = json.NewDecoder(res.Body).Decode(&q)
	if q.Code != "DESCONTO10" || !q.Amount.Equal(d("20")) {
		t.Fatalf("unexpected quote %+v", q)
	}

	cases := map[string]int{
		`{"code":"NOPE","subtotal":10}`: fiber.StatusNotFound,
		`{"code":"OFF","subtotal":10}`:  fiber.StatusUnprocessableEntity,
		`{"code":"OLD","subtotal":10}`:  fiber.StatusUnprocessableEntity,
		`{"subtotal":10}`:               fiber.StatusBadRequest,
	}
	for body, want := range cases {
		res, _ := app.Test(jsonRequest("POST", "/api/coupons/validate", body))
		if res.StatusCode != want {
			t.Errorf("%s: status = %d, want %d", body, res.StatusCode, want)
		}
	}
}

func TestAdminCoupons(t *testing.T) {
	app := makeApp(NewInMemoryRepository(nil))

	res, _ := app.Test(jsonRequest("POST", "/api/admin/coupons", `{"code":"x","type":"percentage","discount":150}`))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for >100%%, got %d", res.StatusCode)
	}
	res, _ = app.Test(jsonRequest("POST", "/api/admin/coupons", `{"code":"x","type":"bogus","discount":1}`))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad type, got %d", res.StatusCode)
	}

	res, _ = app.Test(jsonRequest("POST", "/api/admin/coupons", `{"code":" blackfriday ","type":"fixed","discount":100,"expiresAt":"2030-11-30"}`))
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	var created Coupon
	_ = json.NewDecoder(res.Body).Decode(&created)
	if created.Code != "BLACKFRIDAY" || !created.IsActive || created.ExpiresAt == nil {
		t.Fatalf("unexpected coupon %+v", created)
	}

	res, _ = app.Test(jsonRequest("POST", "/api/admin/coupons", `{"code":"BlackFriday","type":"fixed","discount":1}`))
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate code, got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest("POST", "/api/admin/coupons/"+created.ID+"/toggle", nil))
	var toggled Coupon
	_ = json.NewDecoder(res.Body).Decode(&toggled)
	if toggled.IsActive {
		t.Fatalf("toggle should deactivate")
	}

	res, _ = app.Test(jsonRequest("PUT", "/api/admin/coupons/"+created.ID, `{"expiresAt":""}`))
	var updated Coupon
	_ = json.NewDecoder(res.Body).Decode(&updated)
	if res.StatusCode != fiber.StatusOK || updated.ExpiresAt != nil || updated.Code != "BLACKFRIDAY" {
		t.Fatalf("unexpected update %d %+v", res.StatusCode, updated)
	}

	res, _ = app.Test(httptest.NewRequest("DELETE", "/api/admin/coupons/"+created.ID, nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	res, _ = app.Test(httptest.NewRequest("GET", "/api/admin/coupons/"+created.ID, nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}

func TestAdminCoupons_StorageErrorIsOpaque(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("WHERE id = \\$1").WithArgs("c1").WillReturnError(errors.New(`pq: relation "coupons" does not exist`))
	res, err := makeApp(NewPostgresRepository(db)).Test(httptest.NewRequest("GET", "/api/admin/coupons/c1", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body["message"] != "failed to process coupon" {
		t.Fatalf("storage details leaked: %v", body)
	}
}

func TestPostgresCreate_DuplicateCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO coupons").WillReturnError(&pq.Error{Code: "23505"})
	_, err = NewPostgresRepository(db).Create(context.Background(), Coupon{ID: "1", Code: "X", Type: TypeFixed, Discount: d("1")})
	if err != ErrCodeExists {
		t.Fatalf("expected ErrCodeExists, got %v", err)
	}
}

func TestPostgresGetByCode_Normalizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("WHERE code = \\$1").WithArgs("DESCONTO10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "discount", "type", "is_active", "expires_at", "created_at", "updated_at"}).
			AddRow("1", "DESCONTO10", "10.00", TypePercentage, true, nil, now, now))

	c, err := NewPostgresRepository(db).GetByCode(context.Background(), " desconto10 ")
	if err != nil || c.ExpiresAt != nil || !c.Discount.Equal(d("10")) {
		t.Fatalf("unexpected %+v %v", c, err)
	}
}
