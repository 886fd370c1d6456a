package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/auth/authtest"
	"github.com/wichananm65/techstore-backend/internal/product"
)

func catalog() *product.Service {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: "p1", Name: "Smartphone Galaxy Pro", Price: decimal.RequireFromString("1299.99"), Stock: 5, IsActive: true, CreatedAt: now},
		{ID: "p2", Name: "Fone Bluetooth Premium", Price: decimal.RequireFromString("299.99"), Stock: 100, IsActive: true, CreatedAt: now.Add(time.Second)},
		{ID: "off", Name: "Retired", Price: decimal.RequireFromString("1"), Stock: 10, IsActive: false, CreatedAt: now},
	}))
}

func makeApp(repo Repository) *fiber.App {
	app := fiber.New()
	app.Use(authtest.Middleware())
	NewHandler(NewService(repo, catalog())).RegisterProtectedRoutes(app.Group("/api", authtest.RequireUser()))
	return app
}

func asUser(r *http.Request, id string) *http.Request {
	r.Header.Set(authtest.HeaderUserID, id)
	return r
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeView(t *testing.T, res *http.Response) View {
	t.Helper()
	var v View
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCartFlow(t *testing.T) {
	app := makeApp(NewInMemoryRepository())

	res, _ := app.Test(httptest.NewRequest("GET", "/api/cart", nil))
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	res, _ = app.Test(asUser(jsonRequest("POST", "/api/cart/items", `{"productId":"p1"}`), "u1"))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	res, _ = app.Test(asUser(jsonRequest("POST", "/api/cart/items", `{"productId":"p1","quantity":2}`), "u1"))
	v := decodeView(t, res)
	if len(v.Items) != 1 || v.Items[0].Quantity != 3 {
		t.Fatalf("lines should merge, got %+v", v.Items)
	}

	res, _ = app.Test(asUser(jsonRequest("POST", "/api/cart/items", `{"productId":"p2","quantity":2}`), "u1"))
	v = decodeView(t, res)
	if v.ItemCount != 5 || !v.Total.Equal(decimal.RequireFromString("4499.95")) {
		t.Fatalf("unexpected totals count=%d total=%s", v.ItemCount, v.Total)
	}

	res, _ = app.Test(asUser(jsonRequest("PUT", "/api/cart/items/p2", `{"quantity":0}`), "u1"))
	v = decodeView(t, res)
	if len(v.Items) != 1 || v.Items[0].ProductID != "p1" {
		t.Fatalf("quantity 0 should remove, got %+v", v.Items)
	}

	// other users have their own cart
	res, _ = app.Test(asUser(httptest.NewRequest("GET", "/api/cart", nil), "u2"))
	if v := decodeView(t, res); len(v.Items) != 0 {
		t.Fatalf("expected empty cart for u2, got %+v", v.Items)
	}

	res, _ = app.Test(asUser(httptest.NewRequest("DELETE", "/api/cart/items/p1", nil), "u1"))
	if res.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.StatusCode)
	}
	res, _ = app.Test(asUser(httptest.NewRequest("GET", "/api/cart", nil), "u1"))
	if v := decodeView(t, res); len(v.Items) != 0 || !v.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", v)
	}
}

func TestAddItem_Errors(t *testing.T) {
	app := makeApp(NewInMemoryRepository())

	cases := []struct {
		body string
		want int
	}{
		{`{"productId":"missing"}`, fiber.StatusNotFound},
		{`{"productId":"off"}`, fiber.StatusNotFound},
		{`{"productId":"p1","quantity":0}`, fiber.StatusBadRequest},
		{`{"quantity":1}`, fiber.StatusBadRequest},
		{`{"productId":"p1","quantity":6}`, fiber.StatusConflict},
	}
	for _, tc := range cases {
		res, _ := app.Test(asUser(jsonRequest("POST", "/api/cart/items", tc.body), "u1"))
		if res.StatusCode != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.body, res.StatusCode, tc.want)
		}
	}
}

func TestView_DropsVanishedProducts(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now()
	_ = repo.Add(ctx, "u1", "p1", 1, now)
	_ = repo.Add(ctx, "u1", "gone", 4, now)
	_ = repo.Add(ctx, "u1", "off", 1, now)

	v, err := NewService(repo, catalog()).View(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Items) != 1 || v.ItemCount != 1 {
		t.Fatalf("expected only p1, got %+v", v.Items)
	}
}

func TestClearCart(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.Add(context.Background(), "u1", "p1", 1, time.Now())
	app := makeApp(repo)

	res, _ := app.Test(asUser(httptest.NewRequest("DELETE", "/api/cart", nil), "u1"))
	if res.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.StatusCode)
	}
	c, _ := repo.Get(context.Background(), "u1")
	if len(c.Lines) != 0 {
		t.Fatalf("expected cleared cart, got %+v", c.Lines)
	}
}

func TestStale(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.Add(ctx, "old", "p1", 1, cutoff.Add(-48*time.Hour))
	_ = repo.Add(ctx, "old", "p2", 2, cutoff.Add(-30*time.Hour))
	_ = repo.Add(ctx, "mixed", "p1", 1, cutoff.Add(-48*time.Hour))
	_ = repo.Add(ctx, "mixed", "p2", 1, cutoff.Add(time.Hour))
	_ = repo.Add(ctx, "ghost", "gone", 1, cutoff.Add(-48*time.Hour))

	stale, err := NewService(repo, catalog()).Stale(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].UserID != "old" {
		t.Fatalf("expected only the old cart, got %+v", stale)
	}
	if stale[0].ItemCount != 3 || !stale[0].UpdatedAt.Equal(cutoff.Add(-30*time.Hour)) {
		t.Fatalf("unexpected stale cart %+v", stale[0])
	}
}
