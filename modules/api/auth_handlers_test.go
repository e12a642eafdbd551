package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/auth"
)

// setupAuthApp wires the auth endpoints against a canned account.
func setupAuthApp(t *testing.T) *fiber.App {
	t.Helper()

	account := user.Public{
		ID:        "user-1",
		Username:  "alice",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	session := &auth.Session{User: account, Token: "session-token"}

	mockAuth := &mockAuthPort{
		registerFunc: func(ctx context.Context, username, password string) (*auth.Session, error) {
			return session, nil
		},
		loginFunc: func(ctx context.Context, username, password string) (*auth.Session, error) {
			return session, nil
		},
		validateTokenFunc: func(ctx context.Context, token string) (*user.Claims, error) {
			return &user.Claims{UserID: account.ID, Username: account.Username}, nil
		},
		getUserFunc: func(ctx context.Context, userID string) (*user.Public, error) {
			return &account, nil
		},
	}
	handlers := NewHandlers(mockAuth, nil, nil)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	authRoutes := app.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Get("/me", RequireSession(mockAuth), handlers.Me)

	return app
}

func doAuthJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

// The web client reads the account out of a top-level "user" key on
// register, login and me, so all three wrap the public view that way.
func TestAuthHandlers_UserEnvelope(t *testing.T) {
	app := setupAuthApp(t)

	tests := []struct {
		name           string
		request        func() *http.Response
		expectedStatus int
		wantCookie     bool
	}{
		{
			name: "register",
			request: func() *http.Response {
				return doAuthJSON(t, app, "POST", "/auth/register", map[string]string{
					"username": "alice", "password": "secret123",
				})
			},
			expectedStatus: http.StatusCreated,
			wantCookie:     true,
		},
		{
			name: "login",
			request: func() *http.Response {
				return doAuthJSON(t, app, "POST", "/auth/login", map[string]string{
					"username": "alice", "password": "secret123",
				})
			},
			expectedStatus: http.StatusOK,
			wantCookie:     true,
		},
		{
			name: "me",
			request: func() *http.Response {
				req := httptest.NewRequest("GET", "/auth/me", nil)
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "session-token"})
				resp, err := app.Test(req, -1)
				if err != nil {
					t.Fatalf("app.Test() error = %v", err)
				}
				return resp
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.request()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Fatalf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}

			var body map[string]json.RawMessage
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			raw, ok := body["user"]
			if !ok {
				t.Fatalf("response %v has no %q key", body, "user")
			}
			var u UserResponse
			if err := json.Unmarshal(raw, &u); err != nil {
				t.Fatalf("failed to decode user envelope: %v", err)
			}
			if u.ID != "user-1" || u.Username != "alice" {
				t.Errorf("user = %+v, want id user-1 username alice", u)
			}

			if tt.wantCookie {
				var found bool
				for _, c := range resp.Cookies() {
					if c.Name == SessionCookie && c.Value == "session-token" {
						found = true
					}
				}
				if !found {
					t.Errorf("response did not set the %s cookie", SessionCookie)
				}
			}
		})
	}
}
