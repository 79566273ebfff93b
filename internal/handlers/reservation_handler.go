package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReservationHandler struct {
	BaseHandler
	reservationService services.ReservationService
}

func NewReservationHandler(reservationService services.ReservationService, logger utils.Logger) *ReservationHandler {
	return &ReservationHandler{
		BaseHandler:        NewBaseHandler(logger),
		reservationService: reservationService,
	}
}

// CreateReservation
// @Summary Reserve a book
// @Description Holds one copy of the book until the reservation is rejected or returned
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body services.CreateReservationRequest true "Book to reserve"
// @Success 201 {object} services.ReservationResponse
// @Failure 400 {object} ErrorResponse "Book unavailable or already reserved"
// @Failure 404 {object} ErrorResponse "Book not found"
// @Router /reservations [post]
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.CreateReservationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating reservation", "book_id", req.BookID)

	reservation, err := h.reservationService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// MyReservations
// @Summary List own reservations
// @Tags reservations
// @Produce json
// @Success 200 {array} services.ReservationResponse
// @Router /reservations/my [get]
func (h *ReservationHandler) MyReservations(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	reservations, err := h.reservationService.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// CancelReservation
// @Summary Cancel own pending reservation
// @Tags reservations
// @Produce json
// @Param id path int true "Reservation ID"
// @Success 200 {object} services.ReservationResponse
// @Failure 403 {object} ErrorResponse "Not the owner"
// @Failure 409 {object} ErrorResponse "Not pending"
// @Router /reservations/{id}/cancel [put]
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Cancelling reservation", "reservation_id", id)

	reservation, err := h.reservationService.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// ListReservations
// @Summary List reservations
// @Tags reservations
// @Produce json
// @Param status query string false "pending, approved, rejected or returned"
// @Param user_id query string false "Reader filter"
// @Param book_id query int false "Book filter"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 12, max: 100)"
// @Success 200 {object} services.ReservationListResponse
// @Failure 422 {object} ErrorResponse "Invalid filters"
// @Router /reservations [get]
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	filters, ok := h.parseReservationFilters(c)
	if !ok {
		return
	}
	filters.Limit, filters.Offset = h.parsePagination(c)

	resp, err := h.reservationService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportReservations
// @Summary Export reservations as xlsx
// @Tags reservations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "pending, approved, rejected or returned"
// @Param user_id query string false "Reader filter"
// @Param book_id query int false "Book filter"
// @Success 200 {file} binary
// @Router /reservations/export [get]
func (h *ReservationHandler) ExportReservations(c *gin.Context) {
	filters, ok := h.parseReservationFilters(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting reservations")

	var buf bytes.Buffer
	if err := h.reservationService.Export(c.Request.Context(), filters, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("reservations_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetReservation
// @Summary Get reservation
// @Tags reservations
// @Produce json
// @Param id path int true "Reservation ID"
// @Success 200 {object} services.ReservationResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// ReservationEvents
// @Summary Reservation audit trail
// @Tags reservations
// @Produce json
// @Param id path int true "Reservation ID"
// @Success 200 {array} models.ReservationEvent
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /reservations/{id}/events [get]
func (h *ReservationHandler) ReservationEvents(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := h.reservationService.Events(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// UpdateReservationStatus
// @Summary Approve, reject or return a reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path int true "Reservation ID"
// @Param request body services.UpdateReservationStatusRequest true "Target status and optional due date (YYYY-MM-DD)"
// @Success 200 {object} services.ReservationResponse
// @Failure 409 {object} ErrorResponse "Invalid transition"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /reservations/{id}/status [put]
func (h *ReservationHandler) UpdateReservationStatus(c *gin.Context) {
	staffID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateReservationStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating reservation status", "reservation_id", id, "status", req.Status)

	reservation, err := h.reservationService.UpdateStatus(c.Request.Context(), id, staffID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// DeleteReservation
// @Summary Delete a finished reservation
// @Tags reservations
// @Produce json
// @Param id path int true "Reservation ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse "Reservation still active"
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) DeleteReservation(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting reservation", "reservation_id", id)

	if err := h.reservationService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Reservation deleted"})
}

func (h *ReservationHandler) parseReservationFilters(c *gin.Context) (repositories.ReservationFilters, bool) {
	var filters repositories.ReservationFilters

	if raw := c.Query("status"); raw != "" {
		status := models.ReservationStatus(strings.ToLower(raw))
		if !status.IsValid() {
			h.rejectQuery(c, "status", "status must be one of pending, approved, rejected, returned", raw, "oneof")
			return filters, false
		}
		filters.Status = &status
	}

	if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		filters.UserID = &userID
	}

	if raw := c.Query("book_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			h.rejectQuery(c, "book_id", "book_id must be a positive integer", raw, "gt")
			return filters, false
		}
		bookID := uint(id)
		filters.BookID = &bookID
	}

	return filters, true
}
