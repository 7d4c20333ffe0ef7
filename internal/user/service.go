package user

import (
	"collaborative-notes/internal/domain"
	"collaborative-notes/internal/errors"
	"context"
	defError "errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// searchResultCap limits directory search results.
const searchResultCap = 10

// minSearchLength is the shortest query the directory will search for.
const minSearchLength = 2

// Service defines the interface for user business logic
type Service interface {
	Register(user *domain.User) error
	Login(username, password string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string, requesterID uint64) ([]domain.SafeUser, error)
	DeactivateUser(id uint64) error
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
}

// NewService creates a new user service
func NewService(repository UserRepository) Service {
	return &DefaultService{repository: repository}
}

// Register registers a new user
func (s *DefaultService) Register(user *domain.User) error {
	// Check if user with email already exists
	_, err := s.repository.FindByEmail(user.Email)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		return errors.UnprocessableEntity("User already registered", nil)
	}

	// Username must be free as well
	_, err = s.repository.FindByUsername(user.Username)
	if err == nil {
		return errors.UnprocessableEntity("Username already taken", nil)
	}
	if !defError.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Hash the password before saving
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.UnprocessableEntity("Can't hash password", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.IsActive = true

	// Create user
	return s.repository.Create(user)
}

// Login authenticates a user
func (s *DefaultService) Login(username, password string) (*domain.User, error) {
	user, err := s.repository.FindByUsername(username)
	if err != nil {
		return nil, errors.Unauthorized("User not found", err)
	}

	// Check if user is active
	if !user.IsActive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	// Check password
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, errors.UnprocessableEntity("Wrong password", err)
	}

	return user, nil
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	user, err := s.repository.FindByID(id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("User not found", err)
		}
		return nil, err
	}
	return user, nil
}

// GetUserByUsername resolves an exact username.
func (s *DefaultService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repository.FindByUsername(username)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("User not found", err)
		}
		if defError.Is(err, ErrAmbiguousUsername) {
			return nil, errors.UnprocessableEntity("Multiple users found with this username. Please contact support.", err)
		}
		return nil, err
	}
	return user, nil
}

// SearchUsers finds collaborator candidates by username substring,
// case-insensitively, excluding the requester. Queries shorter than two
// characters return an empty list.
func (s *DefaultService) SearchUsers(ctx context.Context, query string, requesterID uint64) ([]domain.SafeUser, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return []domain.SafeUser{}, nil
	}

	users, err := s.repository.Search(ctx, query, requesterID, searchResultCap)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToSafeUser())
	}
	return result, nil
}

// DeactivateUser deactivates a user
func (s *DefaultService) DeactivateUser(id uint64) error {
	return s.repository.Deactivate(id)
}
