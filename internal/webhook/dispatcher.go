package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
	HeaderSignature = "X-Webhook-Signature"
)

// Envelope is the JSON body of every delivery.
type Envelope struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
	Data      any       `json:"data"`
}

// Result describes the outcome of a single hook delivery.
type Result struct {
	Status   int    `json:"status"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the receiver answered 2xx.
func (r Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// HookSource is the part of the repository the dispatcher reads.
type HookSource interface {
	ListActiveFor(ctx context.Context, event string) ([]Webhook, error)
}

type DispatcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Concurrency int
	Backoff     time.Duration
}

// Dispatcher fans events out to subscribed hooks in the background.
type Dispatcher struct {
	hooks  HookSource
	client *http.Client
	cfg    DispatcherConfig
	log    *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewDispatcher(hooks HookSource, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		hooks:  hooks,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log.With(slog.String("component", "webhook")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish delivers event to every active subscriber without blocking the
// caller. Delivery failures are logged only. The request context's
// cancellation does not abort in-flight deliveries.
func (d *Dispatcher) Publish(ctx context.Context, event string, data any) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.publish(ctx, event, data)
	}()
}

func (d *Dispatcher) publish(ctx context.Context, event string, data any) {
	hooks, err := d.hooks.ListActiveFor(ctx, event)
	if err != nil {
		d.log.Error("load webhooks", slog.String("event", event), slog.Any("error", err))
		return
	}
	if len(hooks) == 0 {
		return
	}

	env := Envelope{ID: uuid.NewString(), Event: event, CreatedAt: d.now(), Data: data}
	body, err := json.Marshal(env)
	if err != nil {
		d.log.Error("encode webhook payload", slog.String("event", event), slog.Any("error", err))
		return
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for _, h := range hooks {
		h := h
		g.Go(func() error {
			res := d.send(ctx, h, env, body)
			if !res.OK() {
				d.log.Warn("webhook delivery failed",
					slog.String("webhook_id", h.ID),
					slog.String("event", event),
					slog.Int("status", res.Status),
					slog.Int("attempts", res.Attempts),
					slog.String("error", res.Error))
				return nil
			}
			d.log.Debug("webhook delivered", slog.String("webhook_id", h.ID), slog.String("event", event))
			return nil
		})
	}
	_ = g.Wait()
}

// Deliver sends one event to one hook synchronously, with retries.
func (d *Dispatcher) Deliver(ctx context.Context, h Webhook, event string, data any) Result {
	env := Envelope{ID: uuid.NewString(), Event: event, CreatedAt: d.now(), Data: data}
	body, err := json.Marshal(env)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return d.send(ctx, h, env, body)
}

// Wait blocks until every published event has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, h Webhook, env Envelope, body []byte) Result {
	var res Result
	delay := d.cfg.Backoff
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		status, err := d.post(ctx, h, env, body)
		res.Status = status
		if err == nil {
			res.Error = ""
			return res
		}
		res.Error = err.Error()

		if attempt == d.cfg.MaxAttempts || delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			res.Error = ctx.Err().Error()
			return res
		case <-time.After(delay):
		}
		delay *= 2
	}
	return res
}

func (d *Dispatcher) post(ctx context.Context, h Webhook, env Envelope, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, env.Event)
	req.Header.Set(HeaderDelivery, env.ID)
	if h.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(h.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign returns the X-Webhook-Signature value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
