package webhook

import (
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Store events a webhook can subscribe to.
const (
	EventNewOrder           = "new_order"
	EventNewUser            = "new_user"
	EventOrderStatusChanged = "order_status_changed"
	EventBirthday           = "birthday"
	EventAbandonedCart      = "abandoned_cart"

	// EventPing is sent only by the admin test endpoint.
	EventPing = "ping"
)

// Events lists every subscribable event.
var Events = []string{
	EventNewOrder,
	EventNewUser,
	EventOrderStatusChanged,
	EventBirthday,
	EventAbandonedCart,
}

var ErrNotFound = errors.New("webhook not found")

// Webhook is an outbound callback. Secret is write-only: responses expose
// only whether one is set.
type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"isActive"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w Webhook) MarshalJSON() ([]byte, error) {
	type alias Webhook
	return json.Marshal(struct {
		alias
		HasSecret bool `json:"hasSecret"`
	}{alias: alias(w), HasSecret: w.Secret != ""})
}

// Subscribed reports whether the hook listens to event.
func (w Webhook) Subscribed(event string) bool {
	return slices.Contains(w.Events, event)
}

// Input is the admin create/update payload. Nil fields are left untouched on
// update.
type Input struct {
	URL      *string  `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"isActive"`
	Secret   *string  `json:"secret"`
}

// Validate reports field errors for the merged webhook.
func Validate(w Webhook) map[string]string {
	errs := map[string]string{}
	u, err := url.Parse(strings.TrimSpace(w.URL))
	if w.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs["url"] = "url must be an absolute http(s) URL"
	}
	if len(w.Events) == 0 {
		errs["events"] = "at least one event is required"
	} else {
		for _, e := range w.Events {
			if !slices.Contains(Events, e) {
				errs["events"] = "unknown event " + e
				break
			}
		}
	}
	return errs
}

func normalizeEvents(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}
