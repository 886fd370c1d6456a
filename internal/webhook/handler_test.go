package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(repo Repository) *fiber.App {
	svc := NewService(repo, newDispatcher(repo, 1))
	app := fiber.New()
	NewHandler(svc).RegisterAdminRoutes(app.Group("/api/admin"))
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateWebhook_Validation(t *testing.T) {
	app := newTestApp(NewInMemoryRepository(nil))

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{name: "relative url", body: `{"url":"/hook","events":["new_order"]}`, field: "url"},
		{name: "ftp url", body: `{"url":"ftp://example.com","events":["new_order"]}`, field: "url"},
		{name: "no events", body: `{"url":"https://example.com/hook","events":[]}`, field: "events"},
		{name: "unknown event", body: `{"url":"https://example.com/hook","events":["order.created"]}`, field: "events"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := app.Test(jsonRequest("POST", "/api/admin/webhooks", tc.body))
			if err != nil {
				t.Fatal(err)
			}
			if res.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.StatusCode)
			}
			var body struct {
				Errors map[string]string `json:"errors"`
			}
			_ = json.NewDecoder(res.Body).Decode(&body)
			if _, ok := body.Errors[tc.field]; !ok {
				t.Fatalf("expected error on %s, got %+v", tc.field, body.Errors)
			}
		})
	}
}

func TestWebhookLifecycle_SecretIsWriteOnly(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	app := newTestApp(repo)

	res, _ := app.Test(jsonRequest("POST", "/api/admin/webhooks",
		`{"url":"https://example.com/hook","events":["new_order","new_order","new_user"],"secret":"top"}`))
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	raw, _ := io.ReadAll(res.Body)
	if strings.Contains(string(raw), "top") {
		t.Fatalf("secret leaked in response: %s", raw)
	}
	var created struct {
		ID        string   `json:"id"`
		Events    []string `json:"events"`
		IsActive  bool     `json:"isActive"`
		HasSecret bool     `json:"hasSecret"`
	}
	_ = json.Unmarshal(raw, &created)
	if !created.HasSecret || !created.IsActive || len(created.Events) != 2 {
		t.Fatalf("unexpected webhook %+v", created)
	}

	res2, _ := app.Test(httptest.NewRequest("POST", "/api/admin/webhooks/"+created.ID+"/toggle", nil))
	var toggled Webhook
	_ = json.NewDecoder(res2.Body).Decode(&toggled)
	if toggled.IsActive {
		t.Fatalf("toggle should deactivate")
	}

	res3, _ := app.Test(jsonRequest("PUT", "/api/admin/webhooks/"+created.ID, `{"secret":""}`))
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res3.StatusCode)
	}
	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.Secret != "" || stored.URL != "https://example.com/hook" {
		t.Fatalf("partial update mismatch: %+v", stored)
	}

	res4, _ := app.Test(httptest.NewRequest("DELETE", "/api/admin/webhooks/"+created.ID, nil))
	if res4.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", res4.StatusCode)
	}
	res5, _ := app.Test(httptest.NewRequest("POST", "/api/admin/webhooks/"+created.ID+"/toggle", nil))
	if res5.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res5.StatusCode)
	}
}

func TestTestWebhook_SendsPing(t *testing.T) {
	events := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events <- r.Header.Get(HeaderEvent)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	repo := NewInMemoryRepository([]Webhook{{ID: "h1", URL: srv.URL, Events: []string{EventNewOrder}, IsActive: false}})
	app := newTestApp(repo)

	res, err := app.Test(httptest.NewRequest("POST", "/api/admin/webhooks/h1/test", nil))
	if err != nil {
		t.Fatal(err)
	}
	var out Result
	_ = json.NewDecoder(res.Body).Decode(&out)
	if res.StatusCode != fiber.StatusOK || out.Status != http.StatusNoContent || out.Attempts != 1 {
		t.Fatalf("unexpected test result %d %+v", res.StatusCode, out)
	}
	if event := <-events; event != EventPing {
		t.Fatalf("expected ping event, got %q", event)
	}
}
