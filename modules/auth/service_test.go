package auth

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/task-tracker/domain/user"
)

// setupTestService creates an AuthService backed by an in-memory SQLite
// database.
func setupTestService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	svc := NewAuthService(
		NewUserRepository(db),
		NewPasswordHasher(),
		NewJWTManager(DefaultJWTConfig()),
	)
	return svc, db
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if session.User.ID == "" {
		t.Error("Register() returned empty user ID")
	}
	if session.User.Username != "alice" {
		t.Errorf("Register() username = %q, want %q", session.User.Username, "alice")
	}
	if session.Token == "" {
		t.Error("Register() returned empty token")
	}

	claims, err := svc.Verify(ctx, session.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != session.User.ID {
		t.Errorf("claims.UserID = %v, want %v", claims.UserID, session.User.ID)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "empty username",
			username: "",
			password: "secret123",
			wantErr:  ErrMissingFields,
		},
		{
			name:     "whitespace username",
			username: "   ",
			password: "secret123",
			wantErr:  ErrMissingFields,
		},
		{
			name:     "empty password",
			username: "bob",
			password: "",
			wantErr:  ErrMissingFields,
		},
		{
			name:     "short password",
			username: "bob",
			password: "12345",
			wantErr:  ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupTestService(t)

			_, err := svc.Register(context.Background(), tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}

			var count int64
			db.Model(&user.User{}).Count(&count)
			if count != 0 {
				t.Errorf("expected no rows after rejected registration, got %d", count)
			}
		})
	}
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Register(ctx, "carol", "another-secret")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("Register() error = %v, want ErrUsernameTaken", err)
	}

	var count int64
	db.Model(&user.User{}).Where("username = ?", "carol").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 row for username, got %d", count)
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dave", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	session, err := svc.Login(ctx, "dave", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.User.ID != registered.User.ID {
		t.Errorf("Login() user ID = %v, want %v", session.User.ID, registered.User.ID)
	}
	if session.Token == "" {
		t.Error("Login() returned empty token")
	}
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "erin", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Unknown username and wrong password must be indistinguishable.
	tests := []struct {
		name     string
		username string
		password string
	}{
		{
			name:     "unknown username",
			username: "nobody",
			password: "secret123",
		},
		{
			name:     "wrong password",
			username: "erin",
			password: "wrong-password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthService_GetUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "frank", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	u, err := svc.GetUser(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Username != "frank" {
		t.Errorf("GetUser() username = %q, want %q", u.Username, "frank")
	}

	if _, err := svc.GetUser(ctx, "missing-id"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
}
