package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
)

type categoryService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCategoryService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CategoryService {
	return &categoryService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *categoryService) List(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.Category().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.repo.Category().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	s.logger.Info("Creating category", "name", req.Name)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	category := &models.Category{Name: name}
	if err := s.repo.Category().Create(ctx, category); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCategoryTaken
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created successfully", "category_id", category.ID)
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, req *CategoryRequest) (*models.Category, error) {
	s.logger.Info("Updating category", "category_id", id, "name", req.Name)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	category.Name = name
	if err := s.repo.Category().Update(ctx, category); err != nil {
		switch {
		case repositories.IsNotFoundError(err):
			return nil, ErrCategoryNotFound
		case repositories.IsDuplicateError(err):
			return nil, ErrCategoryTaken
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.logger.Info("Category updated successfully", "category_id", id)
	return category, nil
}

// Delete removes the category and its book links; books are untouched
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting category", "category_id", id)

	if err := s.repo.Category().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Info("Category deleted successfully", "category_id", id)
	return nil
}

func (s *categoryService) ensureNameFree(ctx context.Context, name string, excludeID uint) error {
	exists, err := s.repo.Category().ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if exists {
		return ErrCategoryTaken
	}
	return nil
}
