package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/pkg/jwt"
	"campus-admissions/internal/pkg/logger"
	"campus-admissions/internal/pkg/password"

	"github.com/google/uuid"
)

// AuthConfig holds what the auth service needs from configuration
type AuthConfig struct {
	Secret          string
	AccessTokenMins int
}

// AuthService handles staff authentication
type AuthService struct {
	userRepo repositories.UserRepository
	cfg      AuthConfig
	log      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, cfg AuthConfig, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.AccessTokenMins <= 0 {
		cfg.AccessTokenMins = 60
	}
	return &AuthService{userRepo: userRepo, cfg: cfg, log: log}
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Login authenticates a staff account and issues an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if !password.Verify(input.Password, user.Password) {
		s.log.WithField("username", username).Warn("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(
		user.ID,
		user.Username,
		user.Role,
		uuid.New().String(),
		s.cfg.Secret,
		s.cfg.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("✅ user logged in")

	return &AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresAt:   time.Now().Add(time.Duration(s.cfg.AccessTokenMins) * time.Minute),
	}, nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, s.cfg.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// GetUserByID gets an active staff account by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}
