package address

import (
	"strings"
	"time"
)

// Address is a saved delivery address owned by one user.
type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Label     string    `json:"label"`
	Line      string    `json:"line"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// String renders the address the way it is stored on an order.
func (a Address) String() string {
	parts := []string{}
	if a.Label != "" {
		parts = append(parts, a.Label)
	}
	parts = append(parts, a.Line)
	if a.Phone != "" {
		parts = append(parts, "Tel: "+a.Phone)
	}
	return strings.Join(parts, " - ")
}
