package user

import "time"

// User is a storefront account. PasswordHash never leaves the process.
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	Phone               string    `json:"phone"`
	BirthDate           string    `json:"birthDate"`
	Avatar              *string   `json:"avatar"`
	IsAdmin             bool      `json:"isAdmin"`
	NeedsPasswordChange bool      `json:"needsPasswordChange"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// BirthDateLayout is the only accepted birthDate format.
const BirthDateLayout = "2006-01-02"

// Patch is a partial update. Password is applied only when non-empty.
type Patch struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birthDate"`
	Avatar    *string `json:"avatar"`
	IsAdmin   *bool   `json:"isAdmin"`
}
