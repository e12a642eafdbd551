package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/task-tracker/domain/user"
)

// AuthPort defines the auth operations other modules depend on.
type AuthPort interface {
	Register(ctx context.Context, username, password string) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	ValidateToken(ctx context.Context, token string) (*user.Claims, error)
	GetUser(ctx context.Context, userID string) (*user.Public, error)
}

// AuthAdapter implements AuthPort over the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) AuthPort {
	if container == nil {
		panic("auth: ServiceContainer is nil")
	}
	return &AuthAdapter{container: container}
}

// Register creates a new account.
func (a *AuthAdapter) Register(ctx context.Context, username, password string) (*Session, error) {
	req := RegisterRequest{Username: username, Password: password}
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceRegister, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, err
	}
	return sessionFromResponse(resp), nil
}

// Login verifies credentials.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*Session, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceLogin, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, err
	}
	return sessionFromResponse(resp), nil
}

// ValidateToken verifies a session token and returns the identity claim.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*user.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceValidateToken, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !resp.Valid {
		return nil, ErrInvalidToken
	}
	return &user.Claims{
		UserID:   resp.UserID,
		Username: resp.Username,
	}, nil
}

// GetUser retrieves the public view of a user.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*user.Public, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceGetUser, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user.Public{
		ID:        resp.ID,
		Username:  resp.Username,
		CreatedAt: resp.CreatedAt,
	}, nil
}

func sessionFromResponse(resp SessionResponse) *Session {
	return &Session{
		User: user.Public{
			ID:        resp.ID,
			Username:  resp.Username,
			CreatedAt: resp.CreatedAt,
		},
		Token: resp.Token,
	}
}
