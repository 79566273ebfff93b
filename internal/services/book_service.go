package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/SAP-F-2025/library-service/internal/validator"
)

const (
	popularLimit = 8
	newestLimit  = 12
)

type bookService struct {
	repo      repositories.Repository
	blobs     storage.BlobStore
	logger    *slog.Logger
	validator *validator.Validator
}

func NewBookService(repo repositories.Repository, blobs storage.BlobStore, logger *slog.Logger, validator *validator.Validator) BookService {
	return &bookService{
		repo:      repo,
		blobs:     blobs,
		logger:    logger,
		validator: validator,
	}
}

// ===== READS =====

func (s *bookService) List(ctx context.Context, filters repositories.BookFilters) (*BookListResponse, error) {
	if err := validateBookSort(filters); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)

	books, total, err := s.repo.Book().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	responses, err := s.toResponses(ctx, books)
	if err != nil {
		return nil, err
	}

	return &BookListResponse{
		Books: responses,
		Total: total,
		Page:  pageOf(filters.Limit, filters.Offset),
		Size:  filters.Limit,
	}, nil
}

func (s *bookService) Get(ctx context.Context, id uint) (*BookResponse, error) {
	book, err := s.repo.Book().GetWithStats(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	responses, err := s.toResponses(ctx, []*models.BookWithStats{book})
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

func (s *bookService) Popular(ctx context.Context) ([]*BookResponse, error) {
	books, err := s.repo.Book().Popular(ctx, popularLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular books: %w", err)
	}
	return s.toResponses(ctx, books)
}

func (s *bookService) Newest(ctx context.Context) ([]*BookResponse, error) {
	books, err := s.repo.Book().Newest(ctx, newestLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get newest books: %w", err)
	}
	return s.toResponses(ctx, books)
}

// ===== WRITES =====

func (s *bookService) Create(ctx context.Context, req *CreateBookRequest) (*BookResponse, error) {
	s.logger.Info("Creating book", "title", req.Title, "total_copies", req.TotalCopies)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	book := &models.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Description:     req.Description,
		ISBN:            normalizeISBN(req.ISBN),
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := ensureCategories(ctx, tx, req.CategoryIDs); err != nil {
			return err
		}
		if err := tx.Book().Create(ctx, book); err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		if len(req.CategoryIDs) > 0 {
			if err := tx.Book().ReplaceCategories(ctx, book.ID, req.CategoryIDs); err != nil {
				return fmt.Errorf("failed to link categories: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book created successfully", "book_id", book.ID)
	return s.Get(ctx, book.ID)
}

func (s *bookService) Update(ctx context.Context, id uint, req *UpdateBookRequest) (*BookResponse, error) {
	s.logger.Info("Updating book", "book_id", id)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		book, err := tx.Book().GetForUpdate(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to get book: %w", err)
		}

		if req.Title != nil {
			book.Title = strings.TrimSpace(*req.Title)
		}
		if req.Author != nil {
			book.Author = strings.TrimSpace(*req.Author)
		}
		if req.Description != nil {
			book.Description = *req.Description
		}
		if req.ISBN != nil {
			book.ISBN = normalizeISBN(req.ISBN)
		}
		if err := tx.Book().Update(ctx, book); err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}

		if req.TotalCopies != nil && *req.TotalCopies != book.TotalCopies {
			if err := s.resizeCopies(ctx, tx, book, *req.TotalCopies); err != nil {
				return err
			}
		}

		if req.CategoryIDs != nil {
			if err := ensureCategories(ctx, tx, *req.CategoryIDs); err != nil {
				return err
			}
			if err := tx.Book().ReplaceCategories(ctx, id, *req.CategoryIDs); err != nil {
				return fmt.Errorf("failed to sync categories: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book updated successfully", "book_id", id)
	return s.Get(ctx, id)
}

// resizeCopies shifts total and available by the same delta. The new total
// may not drop below the copies held by active reservations.
func (s *bookService) resizeCopies(ctx context.Context, tx repositories.Repository, book *models.Book, newTotal int) error {
	active, err := tx.Reservation().CountActiveByBook(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("failed to count active reservations: %w", err)
	}
	if int64(newTotal) < active {
		return NewBusinessRuleError("total_copies_below_active",
			fmt.Sprintf("total_copies cannot be lower than the %d copies held by active reservations", active),
			map[string]interface{}{
				"book_id":             book.ID,
				"requested_total":     newTotal,
				"active_reservations": active,
			})
	}

	delta := newTotal - book.TotalCopies
	if err := tx.Book().AdjustCopies(ctx, book.ID, delta); err != nil {
		if errors.Is(err, repositories.ErrNoAvailableCopies) {
			return NewBusinessRuleError("available_copies_negative",
				"copy change would make available_copies negative",
				map[string]interface{}{"book_id": book.ID, "delta": delta})
		}
		return fmt.Errorf("failed to adjust copies: %w", err)
	}

	s.logger.Info("Book copies adjusted", "book_id", book.ID, "from", book.TotalCopies, "to", newTotal)
	return nil
}

func (s *bookService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting book", "book_id", id)

	var files []*models.File
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Book().GetForUpdate(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to get book: %w", err)
		}

		active, err := tx.Reservation().CountActiveByBook(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count active reservations: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("%w: book has %d active reservations", ErrActiveReservations, active)
		}

		files, err = tx.File().ListByBook(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}

		if err := tx.Book().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := s.blobs.Delete(ctx, file.Path); err != nil {
			s.logger.Warn("Failed to delete blob", "path", file.Path, "error", err)
		}
	}

	s.logger.Info("Book deleted successfully", "book_id", id, "files_removed", len(files))
	return nil
}

func (s *bookService) CheckAvailability(ctx context.Context, id uint) (*AvailabilityReport, error) {
	counts, err := s.repo.Book().CopyCounts(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get copy counts: %w", err)
	}

	expected := int64(counts.TotalCopies) - counts.ActiveReservations
	report := &AvailabilityReport{
		BookID:             id,
		TotalCopies:        counts.TotalCopies,
		AvailableCopies:    counts.AvailableCopies,
		ActiveReservations: counts.ActiveReservations,
		ExpectedAvailable:  expected,
		Consistent:         expected == int64(counts.AvailableCopies),
	}
	if !report.Consistent {
		s.logger.Error("Copy accounting drift detected",
			"book_id", id,
			"available_copies", counts.AvailableCopies,
			"expected", expected)
	}
	return report, nil
}

// ===== HELPERS =====

func (s *bookService) toResponses(ctx context.Context, books []*models.BookWithStats) ([]*BookResponse, error) {
	ids := make([]uint, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}

	categories, err := s.repo.Book().CategoriesForBooks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	responses := make([]*BookResponse, len(books))
	for i, b := range books {
		responses[i] = newBookResponse(b, categories[b.ID])
	}
	return responses, nil
}

func newBookResponse(book *models.BookWithStats, categories []models.Category) *BookResponse {
	if categories == nil {
		categories = []models.Category{}
	}
	book.Categories = categories

	resp := &BookResponse{
		BookWithStats: book,
		IsAvailable:   book.IsAvailable(),
	}
	if book.HasCover {
		resp.CoverURL = fmt.Sprintf("/api/v1/books/%d/cover", book.ID)
	}
	return resp
}

func ensureCategories(ctx context.Context, tx repositories.Repository, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found, err := tx.Category().GetByIDs(ctx, unique)
	if err != nil {
		return fmt.Errorf("failed to get categories: %w", err)
	}
	if len(found) != len(unique) {
		return ErrCategoryNotFound
	}
	return nil
}

func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*isbn)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateBookSort(filters repositories.BookFilters) error {
	var errs ValidationErrors
	if filters.SortBy != "" && !repositories.BookSortColumns[filters.SortBy] {
		errs = append(errs, ValidationError{Field: "sort", Message: "is not a sortable column", Value: filters.SortBy, Rule: "oneof"})
	}
	if order := strings.ToLower(filters.SortOrder); order != "" && order != "asc" && order != "desc" {
		errs = append(errs, ValidationError{Field: "order", Message: "must be asc or desc", Value: filters.SortOrder, Rule: "oneof"})
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid filters: %w", errs)
	}
	return nil
}
