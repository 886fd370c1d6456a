package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/address"
	"github.com/wichananm65/techstore-backend/internal/auth"
	"github.com/wichananm65/techstore-backend/internal/auth/authtest"
	"github.com/wichananm65/techstore-backend/internal/cart"
	"github.com/wichananm65/techstore-backend/internal/coupon"
	"github.com/wichananm65/techstore-backend/internal/logger"
	"github.com/wichananm65/techstore-backend/internal/product"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fixture struct {
	app      *fiber.App
	products *product.InMemoryRepository
	carts    *cart.InMemoryRepository
	coupons  *coupon.Service
	events   *fakePublisher
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	products := product.NewInMemoryRepository([]product.Product{
		{ID: "p1", Name: "Smartphone Galaxy Pro", Price: d("1299.99"), Stock: 5, IsActive: true, CreatedAt: now},
		{ID: "p2", Name: "Fone Bluetooth Premium", Price: d("299.99"), Stock: 100, IsActive: true, CreatedAt: now},
		{ID: "off", Name: "Retired", Price: d("10"), Stock: 10, IsActive: false, CreatedAt: now},
	})
	catalog := product.NewService(products)
	carts := cart.NewInMemoryRepository()
	coupons := coupon.NewService(coupon.NewInMemoryRepository([]coupon.Coupon{
		{ID: "c1", Code: "DESCONTO10", Type: coupon.TypePercentage, Discount: d("10"), IsActive: true},
		{ID: "c2", Code: "OFF", Type: coupon.TypeFixed, Discount: d("10"), IsActive: false},
	}))
	addresses := address.NewService(address.NewInMemoryRepository(map[string][]address.Address{
		"u1": {{ID: "a1", UserID: "u1", Label: "Casa", Line: "Rua A, 123", Phone: "11 9999"}},
	}))
	events := &fakePublisher{}

	svc := NewService(NewInMemoryRepository(products), Deps{
		Catalog:         catalog,
		Coupons:         coupons,
		Carts:           cart.NewService(carts, catalog),
		Addresses:       addresses,
		Events:          events,
		Log:             logger.Discard(),
		MaxInstallments: 12,
	})
	h := NewHandler(svc)

	app := fiber.New()
	app.Use(authtest.Middleware())
	protected := app.Group("/api", authtest.RequireUser())
	h.RegisterProtectedRoutes(protected)
	h.RegisterAdminRoutes(protected.Group("/admin", auth.RequireAdmin(nil)))
	return &fixture{app: app, products: products, carts: carts, coupons: coupons, events: events}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(r *http.Request, id string) *http.Request {
	r.Header.Set(authtest.HeaderUserID, id)
	return r
}

func asAdmin(r *http.Request) *http.Request {
	r.Header.Set(authtest.HeaderUserID, "admin")
	r.Header.Set(authtest.HeaderAdmin, "1")
	return r
}

func decodeOrder(t *testing.T, res *http.Response) Order {
	t.Helper()
	var o Order
	if err := json.NewDecoder(res.Body).Decode(&o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return o
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return p.Stock
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.carts.Add(ctx, "u1", "p1", 2, time.Now())
	_ = f.carts.Add(ctx, "u1", "p2", 1, time.Now())

	body := `{"items":[{"productId":"p1","quantity":1},{"productId":"p1","quantity":1}],
		"paymentMethod":"credit","installments":3,"address":"Rua A, 123",
		"couponCode":"desconto10","total":2339.98}`
	res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders", body), "u1"))
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	o := decodeOrder(t, res)
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 {
		t.Fatalf("duplicate lines should merge, got %+v", o.Items)
	}
	if !o.Subtotal.Equal(d("2599.98")) || !o.Discount.Equal(d("260")) || !o.Total.Equal(d("2339.98")) {
		t.Fatalf("unexpected amounts subtotal=%s discount=%s total=%s", o.Subtotal, o.Discount, o.Total)
	}
	if o.Status != StatusPending || o.Installments != 3 || o.CouponCode != "DESCONTO10" {
		t.Fatalf("unexpected order %+v", o)
	}
	if got := f.stock(t, "p1"); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}

	c, _ := f.carts.Get(ctx, "u1")
	if len(c.Lines) != 1 || c.Lines[0].ProductID != "p2" {
		t.Fatalf("ordered products should leave the cart, got %+v", c.Lines)
	}
	if ev := f.events.names(); len(ev) != 1 || ev[0] != webhook.EventNewOrder {
		t.Fatalf("unexpected events %v", ev)
	}
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	body := `{"items":[{"productId":"p2","quantity":2}],"paymentMethod":"pix","address":"Rua A"}`

	req := asUser(jsonRequest("POST", "/api/orders", body), "u1")
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	res, _ := f.app.Test(req)
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	first := decodeOrder(t, res)

	req = asUser(jsonRequest("POST", "/api/orders", body), "u1")
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	res, _ = f.app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("replay should return 200, got %d", res.StatusCode)
	}
	if replay := decodeOrder(t, res); replay.ID != first.ID {
		t.Fatalf("replay returned a different order %s != %s", replay.ID, first.ID)
	}
	if got := f.stock(t, "p2"); got != 98 {
		t.Fatalf("replay must not touch stock, got %d", got)
	}

	// the key is scoped to the user
	req = asUser(jsonRequest("POST", "/api/orders", body), "u2")
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	res, _ = f.app.Test(req)
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("another user's key should create, got %d", res.StatusCode)
	}
	if ev := f.events.names(); len(ev) != 2 {
		t.Fatalf("expected two new_order events, got %v", ev)
	}
}

func TestPlaceOrder_ReplayAfterStateChanged(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		change func(t *testing.T, f *fixture)
	}{
		{
			name: "stock sold out by the original order",
			body: `{"items":[{"productId":"p1","quantity":5}],"paymentMethod":"pix","address":"Rua A"}`,
		},
		{
			name: "coupon switched off",
			body: `{"items":[{"productId":"p2","quantity":1}],"paymentMethod":"pix","address":"Rua A","couponCode":"DESCONTO10","total":269.99}`,
			change: func(t *testing.T, f *fixture) {
				if _, err := f.coupons.Toggle(context.Background(), "c1"); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "product deactivated",
			body: `{"items":[{"productId":"p2","quantity":1}],"paymentMethod":"pix","address":"Rua A"}`,
			change: func(t *testing.T, f *fixture) {
				p, _ := f.products.GetByID(context.Background(), "p2")
				p.IsActive = false
				if _, err := f.products.Update(context.Background(), p); err != nil {
					t.Fatal(err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			send := func() *http.Response {
				req := asUser(jsonRequest("POST", "/api/orders", tc.body), "u1")
				req.Header.Set(HeaderIdempotencyKey, "k")
				res, err := f.app.Test(req)
				if err != nil {
					t.Fatal(err)
				}
				return res
			}

			res := send()
			if res.StatusCode != fiber.StatusCreated {
				t.Fatalf("expected 201, got %d", res.StatusCode)
			}
			first := decodeOrder(t, res)
			if tc.change != nil {
				tc.change(t, f)
			}

			res = send()
			if res.StatusCode != fiber.StatusOK {
				t.Fatalf("replay should return 200, got %d", res.StatusCode)
			}
			if replay := decodeOrder(t, res); replay.ID != first.ID || !replay.Total.Equal(first.Total) {
				t.Fatalf("replay returned %+v, want %+v", replay, first)
			}
		})
	}
}

func TestPlaceOrder_Errors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"no items", `{"items":[],"paymentMethod":"pix","address":"x"}`, fiber.StatusBadRequest},
		{"bad quantity", `{"items":[{"productId":"p1","quantity":0}],"paymentMethod":"pix","address":"x"}`, fiber.StatusBadRequest},
		{"bad payment", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"paypal","address":"x"}`, fiber.StatusBadRequest},
		{"no address", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"pix"}`, fiber.StatusBadRequest},
		{"too many installments", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"credit","installments":13,"address":"x"}`, fiber.StatusBadRequest},
		{"unknown address id", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"pix","addressId":"nope"}`, fiber.StatusBadRequest},
		{"unknown product", `{"items":[{"productId":"zzz","quantity":1}],"paymentMethod":"pix","address":"x"}`, fiber.StatusNotFound},
		{"inactive product", `{"items":[{"productId":"off","quantity":1}],"paymentMethod":"pix","address":"x"}`, fiber.StatusNotFound},
		{"insufficient stock", `{"items":[{"productId":"p1","quantity":6}],"paymentMethod":"pix","address":"x"}`, fiber.StatusConflict},
		{"unknown coupon", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"pix","address":"x","couponCode":"NOPE"}`, fiber.StatusUnprocessableEntity},
		{"inactive coupon", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"pix","address":"x","couponCode":"OFF"}`, fiber.StatusUnprocessableEntity},
		{"stale total", `{"items":[{"productId":"p1","quantity":1}],"paymentMethod":"pix","address":"x","total":1199.99}`, fiber.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders", tc.body), "u1"))
			if res.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tc.want)
			}
		})
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("failed checkouts must not touch stock, got %d", got)
	}
}

func TestPlaceOrder_AddressIDAndInstallments(t *testing.T) {
	f := newFixture(t)
	body := `{"items":[{"productId":"p2","quantity":1}],"paymentMethod":"debit","installments":6,"addressId":"a1","total":300}`
	res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders", body), "u1"))
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	o := decodeOrder(t, res)
	if o.Installments != 1 {
		t.Fatalf("non-credit payments use one installment, got %d", o.Installments)
	}
	if o.Address != "Casa - Rua A, 123 - Tel: 11 9999" {
		t.Fatalf("unexpected address %q", o.Address)
	}
}

func TestOrderVisibility(t *testing.T) {
	f := newFixture(t)
	res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders",
		`{"items":[{"productId":"p2","quantity":1}],"paymentMethod":"cash","address":"x"}`), "u1"))
	o := decodeOrder(t, res)

	res, _ = f.app.Test(asUser(httptest.NewRequest("GET", "/api/orders/"+o.ID, nil), "u2"))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("foreign order should be 404, got %d", res.StatusCode)
	}
	res, _ = f.app.Test(asAdmin(httptest.NewRequest("GET", "/api/orders/"+o.ID, nil)))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("admins read any order, got %d", res.StatusCode)
	}

	res, _ = f.app.Test(asUser(httptest.NewRequest("GET", "/api/orders", nil), "u2"))
	var list []Order
	_ = json.NewDecoder(res.Body).Decode(&list)
	if len(list) != 0 {
		t.Fatalf("u2 should have no orders, got %d", len(list))
	}

	res, _ = f.app.Test(asUser(httptest.NewRequest("GET", "/api/admin/orders", nil), "u1"))
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", res.StatusCode)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders",
		`{"items":[{"productId":"p1","quantity":2}],"paymentMethod":"boleto","address":"x"}`), "u1"))
	o := decodeOrder(t, res)
	if got := f.stock(t, "p1"); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	path := "/api/admin/orders/" + o.ID + "/status"

	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", path, `{"status":"delivered"}`)))
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("pending -> delivered should be 409, got %d", res.StatusCode)
	}
	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", path, `{"status":"shipped"}`)))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unknown status should be 400, got %d", res.StatusCode)
	}

	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", path, `{"status":"confirmed"}`)))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", path, `{"status":"cancelled"}`)))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if got := decodeOrder(t, res); got.Status != StatusCancelled {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if got := f.stock(t, "p1"); got != 5 {
		t.Fatalf("cancel should restock, got %d", got)
	}

	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", path, `{"status":"confirmed"}`)))
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("cancelled is terminal, got %d", res.StatusCode)
	}

	res, _ = f.app.Test(asAdmin(httptest.NewRequest("GET", "/api/admin/orders?status=cancelled", nil)))
	var list []Order
	_ = json.NewDecoder(res.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != o.ID {
		t.Fatalf("unexpected filtered list %+v", list)
	}

	ev := f.events.names()
	if len(ev) != 3 || ev[1] != webhook.EventOrderStatusChanged || ev[2] != webhook.EventOrderStatusChanged {
		t.Fatalf("unexpected events %v", ev)
	}
}

func TestUpdateStatus_CancelAfterProductDeleted(t *testing.T) {
	f := newFixture(t)
	res, _ := f.app.Test(asUser(jsonRequest("POST", "/api/orders",
		`{"items":[{"productId":"p1","quantity":1},{"productId":"p2","quantity":3}],"paymentMethod":"cash","address":"x"}`), "u1"))
	o := decodeOrder(t, res)
	if err := f.products.Delete(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	res, _ = f.app.Test(asAdmin(jsonRequest("PATCH", "/api/admin/orders/"+o.ID+"/status", `{"status":"cancelled"}`)))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if got := f.stock(t, "p2"); got != 100 {
		t.Fatalf("remaining products should be restocked, got %d", got)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusDelivered},
		{StatusConfirmed, StatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be allowed", tr[0], tr[1])
		}
	}
	denied := [][2]string{
		{StatusPending, StatusDelivered},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusConfirmed, StatusPending},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be denied", tr[0], tr[1])
		}
	}
}
