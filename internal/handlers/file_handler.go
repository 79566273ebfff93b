package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const uploadFormField = "file"

type FileHandler struct {
	BaseHandler
	fileService services.FileService
}

func NewFileHandler(fileService services.FileService, logger utils.Logger) *FileHandler {
	return &FileHandler{
		BaseHandler: NewBaseHandler(logger),
		fileService: fileService,
	}
}

type uploadFunc func(c *gin.Context, bookID uint, header *multipart.FileHeader, file multipart.File) (*services.FileResponse, error)

// UploadCover
// @Summary Upload book cover
// @Description Accepts jpeg, png, gif or webp. The image is resized and stored as jpeg.
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Book ID"
// @Param file formData file true "Cover image"
// @Success 201 {object} services.FileResponse
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 422 {object} ErrorResponse "Invalid file"
// @Router /books/{id}/cover [post]
func (h *FileHandler) UploadCover(c *gin.Context) {
	h.upload(c, "Uploading cover", func(c *gin.Context, bookID uint, header *multipart.FileHeader, file multipart.File) (*services.FileResponse, error) {
		return h.fileService.UploadCover(c.Request.Context(), bookID, header.Filename, header.Size, file)
	})
}

// UploadPDF
// @Summary Upload book pdf
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Book ID"
// @Param file formData file true "PDF document"
// @Success 201 {object} services.FileResponse
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 422 {object} ErrorResponse "Invalid file"
// @Router /books/{id}/pdf [post]
func (h *FileHandler) UploadPDF(c *gin.Context) {
	h.upload(c, "Uploading pdf", func(c *gin.Context, bookID uint, header *multipart.FileHeader, file multipart.File) (*services.FileResponse, error) {
		return h.fileService.UploadPDF(c.Request.Context(), bookID, header.Filename, header.Size, file)
	})
}

func (h *FileHandler) upload(c *gin.Context, msg string, fn uploadFunc) {
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile(uploadFormField)
	if err != nil {
		h.rejectQuery(c, uploadFormField, "file is required", nil, "required")
		return
	}

	h.LogRequest(c, msg, "book_id", bookID, "filename", header.Filename, "size", header.Size)

	file, err := header.Open()
	if err != nil {
		h.LogError(c, err, "Failed to open upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}
	defer file.Close()

	resp, err := fn(c, bookID, header, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetCover streams the stored cover image
// @Summary Get book cover
// @Tags files
// @Produce image/jpeg
// @Param id path int true "Book ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /books/{id}/cover [get]
func (h *FileHandler) GetCover(c *gin.Context) {
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	content, err := h.fileService.OpenCover(c.Request.Context(), bookID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer content.Reader.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, content.File.Size, content.File.MimeType, content.Reader, nil)
}

// DownloadPDF
// @Summary Download book pdf
// @Tags files
// @Produce application/pdf
// @Param id path int true "Book ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /books/{id}/download-pdf [get]
func (h *FileHandler) DownloadPDF(c *gin.Context) {
	bookID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Downloading pdf", "book_id", bookID)

	content, err := h.fileService.OpenPDF(c.Request.Context(), bookID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer content.Reader.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="book_%d.pdf"`, bookID),
	}
	c.DataFromReader(http.StatusOK, content.File.Size, content.File.MimeType, content.Reader, headers)
}

// DeleteFile
// @Summary Delete file
// @Tags files
// @Produce json
// @Param id path int true "File ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting file", "file_id", id)

	if err := h.fileService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "File deleted"})
}
