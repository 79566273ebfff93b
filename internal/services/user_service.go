package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	repo      repositories.Repository
	guard     *Guard
	logger    *slog.Logger
	validator *validator.Validator
	hashCost  int
}

func NewUserService(repo repositories.Repository, guard *Guard, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		guard:     guard,
		logger:    logger,
		validator: validator,
		hashCost:  bcrypt.DefaultCost,
	}
}

// ===== SELF SERVICE =====

func (s *userService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	s.logger.Info("Updating profile", "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.applyIdentityChanges(ctx, user, req.Name, req.Email); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password, s.hashCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated successfully", "user_id", userID)
	return user, nil
}

// ===== ADMINISTRATION =====

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{
		Users: users,
		Total: total,
		Page:  pageOf(filters.Limit, filters.Offset),
		Size:  filters.Limit,
	}, nil
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, id)
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	s.logger.Info("Creating user", "email", req.Email, "role", req.Role)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	role, _ := models.ParseRole(req.Role)

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
		Role:         role,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created successfully", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor *models.User, id string, req *AdminUpdateUserRequest) (*models.User, error) {
	s.logger.Info("Updating user", "user_id", id, "actor_id", actor.ID)

	if err := s.guard.CanModifyUser(actor, id); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyIdentityChanges(ctx, user, req.Name, req.Email); err != nil {
		return nil, err
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User updated successfully", "user_id", id)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor *models.User, id string) error {
	s.logger.Info("Deleting user", "user_id", id, "actor_id", actor.ID)

	if err := s.guard.CanModifyUser(actor, id); err != nil {
		return err
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.User().GetByID(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		// Deleting the holder of an active reservation would leak its copy
		active, err := tx.Reservation().CountActiveByUser(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count reservations: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("%w: user holds %d active reservations", ErrActiveReservations, active)
		}

		if err := tx.User().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("User deleted successfully", "user_id", id)
	return nil
}

func (s *userService) ChangeRole(ctx context.Context, actor *models.User, id string, req *ChangeRoleRequest) (*models.User, error) {
	s.logger.Info("Changing user role", "user_id", id, "actor_id", actor.ID, "role", req.Role)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	role, _ := models.ParseRole(req.Role)

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanChangeRole(actor, user, role); err != nil {
		return nil, err
	}

	if user.Role == role {
		return user, nil
	}
	previous := user.Role
	user.Role = role
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User role changed", "user_id", id, "from", previous, "to", role)
	return user, nil
}

// ===== HELPERS =====

func (s *userService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) applyIdentityChanges(ctx context.Context, user *models.User, name, email *string) error {
	if name != nil {
		user.Name = strings.TrimSpace(*name)
	}
	if email != nil {
		normalized := normalizeEmail(*email)
		if normalized != normalizeEmail(user.Email) {
			exists, err := s.repo.User().ExistsByEmail(ctx, normalized)
			if err != nil {
				return fmt.Errorf("failed to check email: %w", err)
			}
			if exists {
				return ErrEmailTaken
			}
		}
		user.Email = normalized
	}
	return nil
}

func (s *userService) save(ctx context.Context, user *models.User) error {
	if err := s.repo.User().Update(ctx, user); err != nil {
		switch {
		case repositories.IsNotFoundError(err):
			return ErrUserNotFound
		case repositories.IsDuplicateError(err):
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
