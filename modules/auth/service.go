package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/task-tracker/domain/user"
)

var (
	// ErrMissingFields is returned when username or password is empty.
	ErrMissingFields = errors.New("username and password are required")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrInvalidCredentials is returned on login for both unknown username
	// and wrong password, so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Session is the result of a successful registration or login.
type Session struct {
	User  user.Public `json:"user"`
	Token string      `json:"token"`
}

// AuthService handles credential verification and session issuance.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new account and issues a session token.
func (s *AuthService) Register(_ context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	// Pre-check for a cleaner error path; the unique index closes the
	// race between check and insert.
	exists, err := s.repo.UsernameExists(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(u); err != nil {
		return nil, err
	}

	return s.newSession(u)
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(_ context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

// Verify validates a presented session token.
func (s *AuthService) Verify(_ context.Context, token string) (*user.Claims, error) {
	return s.jwt.Verify(token)
}

// GetUser retrieves the public view of a user by ID.
func (s *AuthService) GetUser(_ context.Context, userID string) (*user.Public, error) {
	u, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	return &user.Public{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}, nil
}

func (s *AuthService) newSession(u *user.User) (*Session, error) {
	token, err := s.jwt.Issue(u.ID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &Session{
		User: user.Public{
			ID:        u.ID,
			Username:  u.Username,
			CreatedAt: u.CreatedAt,
		},
		Token: token,
	}, nil
}
