package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"research-backend/internal/shared/storage/kv"
)

const goodPassword = "Correct#Horse9"

func newTestService() *Service {
	svc := NewService(NewMemoryRepo(), kv.NewMemoryStore())
	svc.Cost = bcrypt.MinCost
	return svc
}

func TestSignUpThenSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "  Ada@Example.com ", goodPassword, goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, ProviderLocal, user.Provider)
	assert.NotEqual(t, goodPassword, user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	signedIn, err := svc.SignIn(ctx, "ADA@example.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	_, err = svc.SignIn(ctx, "ada@example.com", "Wrong#Horse9")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "ada@example.com", goodPassword, goodPassword)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "ADA@example.com", goodPassword, goodPassword)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUpValidates(t *testing.T) {
	svc := newTestService()
	_, err := svc.SignUp(context.Background(), "ada@example.com", "short", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGoogleUsersCannotUsePasswordSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.UpsertFromGoogle(ctx, "12345", "Grace@Example.com", " Grace Hopper ")
	require.NoError(t, err)
	assert.Equal(t, "google:12345", user.ID)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Grace Hopper", user.FullName)

	again, err := svc.UpsertFromGoogle(ctx, "12345", "grace@example.com", "Rear Admiral Hopper")
	require.NoError(t, err)
	assert.Equal(t, user.CreatedAt, again.CreatedAt)
	assert.Equal(t, "Rear Admiral Hopper", again.FullName)

	_, err = svc.SignIn(ctx, "grace@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.UpsertFromGoogle(ctx, "", "x@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessionSlotLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	user := User{ID: "u1", Email: "ada@example.com"}

	session, err := svc.Session(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Session{}, session)

	require.NoError(t, svc.StartSession(ctx, user))
	session, err = svc.Session(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Session{Email: "ada@example.com", IsLoggedIn: true}, session)

	require.NoError(t, svc.EndSession(ctx, user.ID))
	session, err = svc.Session(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, session.IsLoggedIn)
}
