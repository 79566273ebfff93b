package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	BaseHandler
	ratingService services.RatingService
}

func NewRatingHandler(ratingService services.RatingService, logger utils.Logger) *RatingHandler {
	return &RatingHandler{
		BaseHandler:   NewBaseHandler(logger),
		ratingService: ratingService,
	}
}

// ListRatings
// @Summary List book ratings
// @Tags ratings
// @Produce json
// @Param id path int true "Book ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 12, max: 100)"
// @Success 200 {object} services.RatingListResponse
// @Router /books/{id}/ratings [get]
func (h *RatingHandler) ListRatings(c *gin.Context) {
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var filters repositories.RatingFilters
	filters.Limit, filters.Offset = h.parsePagination(c)

	resp, err := h.ratingService.List(c.Request.Context(), bookID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RateBook creates or replaces the caller's rating
// @Summary Rate book
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param request body services.RateBookRequest true "Rating between 0 and 5"
// @Success 200 {object} services.RatingResult
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /books/{id}/ratings [post]
func (h *RatingHandler) RateBook(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RateBookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Rating book", "book_id", bookID)

	result, err := h.ratingService.Rate(c.Request.Context(), userID, bookID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteMyRating
// @Summary Remove own rating
// @Tags ratings
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} SuccessResponse{data=models.RatingSummary}
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /books/{id}/ratings [delete]
func (h *RatingHandler) DeleteMyRating(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.ratingService.Delete(c.Request.Context(), userID, bookID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Rating deleted", Data: summary})
}

// DeleteRating
// @Summary Remove rating by ID
// @Tags ratings
// @Produce json
// @Param id path int true "Rating ID"
// @Success 200 {object} SuccessResponse{data=models.RatingSummary}
// @Failure 403 {object} ErrorResponse "Not the owner"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /ratings/{id} [delete]
func (h *RatingHandler) DeleteRating(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	ratingID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.ratingService.DeleteByID(c.Request.Context(), userID, ratingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Rating deleted", Data: summary})
}
