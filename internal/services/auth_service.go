package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	repo      repositories.Repository
	tokens    *TokenManager
	logger    *slog.Logger
	validator *validator.Validator
	hashCost  int
}

func NewAuthService(repo repositories.Repository, tokens *TokenManager, logger *slog.Logger, validator *validator.Validator) AuthService {
	return &authService{
		repo:      repo,
		tokens:    tokens,
		logger:    logger,
		validator: validator,
		hashCost:  bcrypt.DefaultCost,
	}
}

func hashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	s.logger.Info("Registering user", "email", req.Email)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := normalizeEmail(req.Email)
	exists, err := s.repo.User().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(req.Password, s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleReader,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("Login failed", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	// A new login revokes every token issued before it
	version, err := s.repo.User().IncrementTokenVersion(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate token version: %w", err)
	}
	user.TokenVersion = version

	loginAt := time.Now().UTC()
	user.LastLoginAt = &loginAt
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	if _, err := s.repo.User().IncrementTokenVersion(ctx, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logger.Info("User logged out", "user_id", userID)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *authService) issue(user *models.User) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
