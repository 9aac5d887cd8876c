package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"research-backend/internal/shared/storage/kv"
	"research-backend/internal/shared/telemetry"
	"research-backend/internal/shared/util"
)

// SessionSlotKey holds the signed-in state for a user.
const SessionSlotKey = "phd-user"

// Service handles account creation, credential checks and the session slot.
type Service struct {
	Repo  Repo
	Slots kv.Store
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewService(repo Repo, slots kv.Store) *Service {
	return &Service{Repo: repo, Slots: slots}
}

// SignUp validates the submission and creates a local account.
func (s *Service) SignUp(ctx context.Context, email, password, confirm string) (User, error) {
	email = normalizeEmail(email)
	if err := ValidateSignup(email, password, confirm); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Provider:     ProviderLocal,
		PasswordHash: string(hash),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("users.signup", map[string]any{"user_id": user.ID})
	return s.Repo.GetByID(ctx, user.ID)
}

// SignIn checks credentials. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertFromGoogle records a Google identity and returns the stored user.
func (s *Service) UpsertFromGoogle(ctx context.Context, subject, email, name string) (User, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(email) == "" {
		return User{}, fmt.Errorf("%w: google subject and email are required", ErrInvalidInput)
	}
	user := User{
		ID:       ProviderGoogle + ":" + subject,
		Email:    normalizeEmail(email),
		FullName: strings.TrimSpace(name),
		Provider: ProviderGoogle,
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

// StartSession writes the phd-user slot for a signed-in user.
func (s *Service) StartSession(ctx context.Context, user User) error {
	raw, err := json.Marshal(Session{Email: user.Email, IsLoggedIn: true})
	if err != nil {
		return err
	}
	return s.Slots.Put(ctx, util.UserNamespace(user.ID), SessionSlotKey, raw)
}

// EndSession removes the phd-user slot.
func (s *Service) EndSession(ctx context.Context, userID string) error {
	return s.Slots.Delete(ctx, util.UserNamespace(userID), SessionSlotKey)
}

// Session reads the phd-user slot. A missing slot is a signed-out session.
func (s *Service) Session(ctx context.Context, userID string) (Session, error) {
	raw, err := s.Slots.Get(ctx, util.UserNamespace(userID), SessionSlotKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Session{}, nil
		}
		return Session{}, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, fmt.Errorf("decode session slot: %w", err)
	}
	return session, nil
}

func (s *Service) cost() int {
	if s.Cost > 0 {
		return s.Cost
	}
	return bcrypt.DefaultCost
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
