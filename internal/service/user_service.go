package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
	"wellness-hub/internal/storage"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrImageUpload is returned when the profile image could not be stored.
	ErrImageUpload = errors.New("image upload failed")
)

// ValidationError reports unusable registration input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UserService describes account operations of the mock backend.
type UserService interface {
	Register(ctx context.Context, reg domain.Registration, image *domain.ProfileImage) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	images *storage.ProfileImages
	log    *logrus.Entry
}

// NewUserService wires account storage. images may be nil, in which case
// registrations carrying a profile image fail with ErrImageUpload.
func NewUserService(users repository.UserRepository, images *storage.ProfileImages, logger *logrus.Logger) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:  users,
		images: images,
		log:    logger.WithField("component", "users"),
	}
}

func (s *userService) Register(ctx context.Context, reg domain.Registration, image *domain.ProfileImage) (*domain.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = normalizeEmail(reg.Email)

	if reg.Username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if reg.Email == "" || !strings.Contains(reg.Email, "@") {
		return nil, &ValidationError{Field: "email", Message: "a valid email is required"}
	}
	if len(reg.Password) < 6 {
		return nil, &ValidationError{Field: "password", Message: "password must be at least 6 characters"}
	}

	if _, err := s.users.GetByEmail(ctx, reg.Email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var imageKey string
	if image != nil && image.Data != nil {
		if s.images == nil {
			return nil, fmt.Errorf("%w: storage is not configured", ErrImageUpload)
		}
		key, err := s.images.Save(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImageUpload, err)
		}
		imageKey = key
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		s.discardImage(ctx, imageKey)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		ProfileImage: imageKey,
	}
	if _, err := s.users.Create(ctx, account); err != nil {
		s.discardImage(ctx, imageKey)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return s.profile(ctx, account), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.profile(ctx, account), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, repository.ErrNotFound)
	}
	account, err := s.users.GetByID(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, account), nil
}

// profile strips the credentials and resolves the image link.
func (s *userService) profile(ctx context.Context, account *domain.Account) *domain.User {
	user := account.Profile()
	if s.images != nil && user.ProfileImage != "" {
		url, err := s.images.URL(ctx, user.ProfileImage)
		if err != nil {
			s.log.WithError(err).WithField("key", user.ProfileImage).Warn("resolve profile image")
			url = ""
		}
		user.ProfileImage = url
	}
	return &user
}

func (s *userService) discardImage(ctx context.Context, key string) {
	if key == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("discard profile image")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
