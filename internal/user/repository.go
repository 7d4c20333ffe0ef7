package user

import (
	"collaborative-notes/internal/domain"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrAmbiguousUsername is returned when more than one user matches an exact
// username lookup. The unique index should make this unreachable; the branch
// is kept so a broken directory surfaces as a clean error.
var ErrAmbiguousUsername = errors.New("multiple users found with this username")

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *domain.User) error
	FindByEmail(email string) (*domain.User, error)
	FindByID(id uint64) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Search(ctx context.Context, query string, excludeID uint64, limit int) ([]domain.User, error)
	Deactivate(id uint64) error
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

// FindByEmail finds a user by email
func (r *UserRepositoryImpl) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, err
}

// FindByID finds a user by ID
func (r *UserRepositoryImpl) FindByID(id uint64) (*domain.User, error) {
	var user domain.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by exact username.
func (r *UserRepositoryImpl) FindByUsername(username string) (*domain.User, error) {
	var users []domain.User
	err := r.db.Where("username = ?", username).Limit(2).Find(&users).Error
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &users[0], nil
	default:
		return nil, ErrAmbiguousUsername
	}
}

// Search finds users whose username contains query, case-insensitively,
// excluding the requesting user.
func (r *UserRepositoryImpl) Search(ctx context.Context, query string, excludeID uint64, limit int) ([]domain.User, error) {
	var users []domain.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ?", pattern).
		Where("id <> ?", excludeID).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Deactivate deactivates a user
func (r *UserRepositoryImpl) Deactivate(id uint64) error {
	user, err := r.FindByID(id)
	if err != nil {
		return err
	}

	user.IsActive = false
	return r.db.Save(user).Error
}
