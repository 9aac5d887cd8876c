package users

import "context"

// Repo persists accounts. Emails are unique without regard to case.
type Repo interface {
	// Create inserts a new user, returning ErrEmailTaken for a duplicate email.
	Create(ctx context.Context, user User) error
	// Upsert inserts or refreshes an externally authenticated user by id.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
