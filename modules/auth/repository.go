package auth

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/task-tracker/domain/user"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")
)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. The unique index on username is the
// authoritative uniqueness guarantee; a duplicate insert maps to
// ErrUsernameTaken regardless of any earlier existence pre-check.
func (r *UserRepository) Create(u *user.User) error {
	result := r.db.Create(u)
	if result.Error != nil {
		if isDuplicateErr(result.Error) {
			return ErrUsernameTaken
		}
		return result.Error
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(id string) (*user.User, error) {
	var u user.User
	result := r.db.First(&u, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// FindByUsername finds a user by username.
func (r *UserRepository) FindByUsername(username string) (*user.User, error) {
	var u user.User
	result := r.db.First(&u, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// UsernameExists checks if a user with the given username exists.
func (r *UserRepository) UsernameExists(username string) (bool, error) {
	var count int64
	result := r.db.Model(&user.User{}).Where("username = ?", username).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// isDuplicateErr recognizes a unique-constraint violation from either
// GORM's translated error or the raw SQLite message.
func isDuplicateErr(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
