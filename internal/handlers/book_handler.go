package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	BaseHandler
	bookService services.BookService
}

func NewBookHandler(bookService services.BookService, logger utils.Logger) *BookHandler {
	return &BookHandler{
		BaseHandler: NewBaseHandler(logger),
		bookService: bookService,
	}
}

// ListBooks
// @Summary List books
// @Description Paginated catalog with search, author and category filters
// @Tags books
// @Produce json
// @Param search query string false "Matches title, author, description or isbn"
// @Param author query string false "Partial author match"
// @Param category query int false "Category filter (category_id is accepted as an alias)"
// @Param sort query string false "title, author, created_at, updated_at, available_copies, average_rating"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 12, max: 100)"
// @Success 200 {object} services.BookListResponse
// @Failure 422 {object} ErrorResponse "Invalid filters"
// @Router /books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	filters := repositories.BookFilters{
		Search:    strings.TrimSpace(c.Query("search")),
		Author:    strings.TrimSpace(c.Query("author")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filters.Limit, filters.Offset = h.parsePagination(c)

	raw, field := c.Query("category"), "category"
	if raw == "" {
		raw, field = c.Query("category_id"), "category_id"
	}
	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			h.rejectQuery(c, field, field+" must be a positive integer", raw, "gt")
			return
		}
		categoryID := uint(id)
		filters.CategoryID = &categoryID
	}

	resp, err := h.bookService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PopularBooks
// @Summary Most borrowed books
// @Tags books
// @Produce json
// @Success 200 {array} services.BookResponse
// @Router /books/popular [get]
func (h *BookHandler) PopularBooks(c *gin.Context) {
	books, err := h.bookService.Popular(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// NewBooks
// @Summary Recently added books
// @Tags books
// @Produce json
// @Success 200 {array} services.BookResponse
// @Router /books/new [get]
func (h *BookHandler) NewBooks(c *gin.Context) {
	books, err := h.bookService.Newest(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook
// @Summary Get book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} services.BookResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := h.bookService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// CreateBook
// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Param request body services.CreateBookRequest true "Book data"
// @Success 201 {object} services.BookResponse
// @Failure 404 {object} ErrorResponse "Category not found"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req services.CreateBookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating book", "title", req.Title)

	book, err := h.bookService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

// UpdateBook
// @Summary Update book
// @Description Partial update. Changing total_copies moves available_copies by the same delta.
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param request body services.UpdateBookRequest true "Book changes"
// @Success 200 {object} services.BookResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Copies below active reservations"
// @Router /books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateBookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating book", "book_id", id)

	book, err := h.bookService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook
// @Summary Delete book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse "Active reservations exist"
// @Router /books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting book", "book_id", id)

	if err := h.bookService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Book deleted"})
}

// CheckAvailability
// @Summary Audit copy accounting
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} services.AvailabilityReport
// @Router /books/{id}/availability [get]
func (h *BookHandler) CheckAvailability(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.bookService.CheckAvailability(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
