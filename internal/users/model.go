package users

import "time"

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is an account that can own projects.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName,omitempty"`
	Provider     string    `json:"provider"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session mirrors the signed-in state kept in the user's phd-user slot.
type Session struct {
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}
