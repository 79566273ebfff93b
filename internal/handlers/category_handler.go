package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	BaseHandler
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService, logger utils.Logger) *CategoryHandler {
	return &CategoryHandler{
		BaseHandler:     NewBaseHandler(logger),
		categoryService: categoryService,
	}
}

// ListCategories
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory
// @Summary Get category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory
// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Param request body services.CategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 409 {object} ErrorResponse "Name taken"
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating category", "name", req.Name)

	category, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory
// @Summary Rename category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body services.CategoryRequest true "Category"
// @Success 200 {object} models.Category
// @Failure 409 {object} ErrorResponse "Name taken"
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory
// @Summary Delete category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} SuccessResponse
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting category", "category_id", id)

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Category deleted"})
}
