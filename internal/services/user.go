package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/metrics"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgEmailRegistered     = "Email already registered"
	msgInvalidCredentials  = "Invalid email or password"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
	msgEmailTooLong        = "Email must be at most 255 characters"
)

// UserRepository is the credential store.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	User  types.User
	Token string
}

// UserService encapsulates registration and login.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	events EventPublisher

	// dummyHash is compared against on unknown emails so both login
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewUserService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, events EventPublisher) (*UserService, error) {
	dummy, err := hasher.Hash("notekeeper-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		events:    events,
		dummyHash: dummy,
	}, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	result, err := s.register(ctx, NormalizeEmail(email), password)
	metrics.AuthAttemptsTotal.WithLabelValues("register", outcome(err)).Inc()
	return result, err
}

func (s *UserService) register(ctx context.Context, email, password string) (AuthResult, error) {
	if email == "" || password == "" {
		return AuthResult{}, validationError(msgCredentialsRequired)
	}
	if utf8.RuneCountInString(email) > store.MaxEmailLength {
		return AuthResult{}, validationError(msgEmailTooLong)
	}
	if len(password) > auth.MaxPasswordBytes {
		return AuthResult{}, validationError(msgPasswordTooLong)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, conflictError(msgEmailRegistered)
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return AuthResult{}, validationError(msgPasswordTooLong)
		}
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	// The unique index settles concurrent registrations of the same email.
	user, err := s.repo.Create(ctx, types.User{Email: email, PasswordHash: digest})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return AuthResult{}, conflictError(msgEmailRegistered)
		case errors.Is(err, store.ErrValueTooLong):
			return AuthResult{}, validationError(msgEmailTooLong)
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	publishEvent(ctx, s.events, types.EventUserRegistered, user.ID, user.ID)
	return AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh token. Unknown email and
// wrong password produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	result, err := s.login(ctx, NormalizeEmail(email), password)
	metrics.AuthAttemptsTotal.WithLabelValues("login", outcome(err)).Inc()
	return result, err
}

func (s *UserService) login(ctx context.Context, email, password string) (AuthResult, error) {
	if email == "" || password == "" {
		return AuthResult{}, validationError(msgCredentialsRequired)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return AuthResult{}, authenticationError(msgInvalidCredentials)
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return AuthResult{}, authenticationError(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch KindOf(err) {
	case KindValidation:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "denied"
	default:
		return "error"
	}
}
