package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const megabyte = 1 << 20

var pdfMagic = []byte("%PDF-")

var allowedCoverTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// FileServiceConfig bounds uploads and the stored cover size
type FileServiceConfig struct {
	MaxCoverBytes  int64
	MaxPDFBytes    int64
	CoverMaxWidth  int
	CoverMaxHeight int
}

func DefaultFileServiceConfig() FileServiceConfig {
	return FileServiceConfig{
		MaxCoverBytes:  5 * megabyte,
		MaxPDFBytes:    20 * megabyte,
		CoverMaxWidth:  800,
		CoverMaxHeight: 1200,
	}
}

type fileService struct {
	repo   repositories.Repository
	blobs  storage.BlobStore
	config FileServiceConfig
	logger *slog.Logger
}

func NewFileService(repo repositories.Repository, blobs storage.BlobStore, config FileServiceConfig, logger *slog.Logger) FileService {
	return &fileService{
		repo:   repo,
		blobs:  blobs,
		config: config,
		logger: logger,
	}
}

// UploadCover normalizes the image to JPEG inside the configured box
func (s *fileService) UploadCover(ctx context.Context, bookID uint, filename string, size int64, r io.Reader) (*FileResponse, error) {
	s.logger.Info("Uploading cover", "book_id", bookID, "filename", filename, "size", size)

	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}

	data, err := readLimited(r, size, s.config.MaxCoverBytes)
	if err != nil {
		return nil, err
	}

	if mime := http.DetectContentType(data); !allowedCoverTypes[mime] {
		return nil, fmt.Errorf("%w: unsupported cover type %s", ErrInvalidFile, mime)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %v", ErrInvalidFile, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > s.config.CoverMaxWidth || bounds.Dy() > s.config.CoverMaxHeight {
		img = imaging.Fit(img, s.config.CoverMaxWidth, s.config.CoverMaxHeight, imaging.Lanczos)
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}

	key := storage.GenerateUniqueFilename("covers", filename, ".jpg")
	return s.store(ctx, bookID, models.FileTypeCover, key, "image/jpeg", &encoded)
}

func (s *fileService) UploadPDF(ctx context.Context, bookID uint, filename string, size int64, r io.Reader) (*FileResponse, error) {
	s.logger.Info("Uploading pdf", "book_id", bookID, "filename", filename, "size", size)

	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}

	data, err := readLimited(r, size, s.config.MaxPDFBytes)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: not a pdf document", ErrInvalidFile)
	}

	key := storage.GenerateUniqueFilename("pdfs", filename, ".pdf")
	return s.store(ctx, bookID, models.FileTypePDF, key, "application/pdf", bytes.NewReader(data))
}

func (s *fileService) OpenCover(ctx context.Context, bookID uint) (*FileContent, error) {
	return s.open(ctx, bookID, models.FileTypeCover)
}

func (s *fileService) OpenPDF(ctx context.Context, bookID uint) (*FileContent, error) {
	return s.open(ctx, bookID, models.FileTypePDF)
}

func (s *fileService) Delete(ctx context.Context, fileID uint) error {
	s.logger.Info("Deleting file", "file_id", fileID)

	file, err := s.repo.File().GetByID(ctx, fileID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	if err := s.repo.File().Delete(ctx, fileID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.removeBlob(ctx, file.Path)

	s.logger.Info("File deleted successfully", "file_id", fileID, "book_id", file.BookID)
	return nil
}

// ===== HELPERS =====

// store saves the blob and swaps the (book, type) record in one transaction.
// The previous blob is removed only after commit.
func (s *fileService) store(ctx context.Context, bookID uint, fileType models.FileType, key, mime string, content io.Reader) (*FileResponse, error) {
	written, err := s.blobs.Save(ctx, key, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.File{
		BookID:   bookID,
		Type:     fileType,
		Path:     key,
		MimeType: mime,
		Size:     written,
	}

	var previous *models.File
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Book().GetForUpdate(ctx, bookID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to get book: %w", err)
		}

		existing, err := tx.File().GetByBookAndType(ctx, bookID, fileType)
		switch {
		case err == nil:
			if err := tx.File().Delete(ctx, existing.ID); err != nil {
				return fmt.Errorf("failed to retire previous file: %w", err)
			}
			previous = existing
		case !repositories.IsNotFoundError(err):
			return fmt.Errorf("failed to get previous file: %w", err)
		}

		if err := tx.File().Create(ctx, file); err != nil {
			return fmt.Errorf("failed to record file: %w", err)
		}
		return nil
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, err
	}

	if previous != nil {
		s.removeBlob(ctx, previous.Path)
	}

	s.logger.Info("File stored successfully", "book_id", bookID, "type", fileType, "file_id", file.ID, "size", written)
	return &FileResponse{File: file, URL: fileURL(bookID, fileType)}, nil
}

func (s *fileService) open(ctx context.Context, bookID uint, fileType models.FileType) (*FileContent, error) {
	file, err := s.repo.File().GetByBookAndType(ctx, bookID, fileType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	reader, err := s.blobs.Open(ctx, file.Path)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Warn("File record without blob", "file_id", file.ID, "path", file.Path)
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &FileContent{File: file, Reader: reader}, nil
}

func (s *fileService) ensureBook(ctx context.Context, bookID uint) error {
	if _, err := s.repo.Book().GetByID(ctx, bookID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to get book: %w", err)
	}
	return nil
}

func (s *fileService) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete blob", "path", key, "error", err)
	}
}

// readLimited reads at most limit bytes and fails when the upload is larger
func readLimited(r io.Reader, declared, limit int64) ([]byte, error) {
	if declared > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, declared, limit)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidFile)
	}
	return data, nil
}

func fileURL(bookID uint, fileType models.FileType) string {
	if fileType == models.FileTypePDF {
		return fmt.Sprintf("/api/v1/books/%d/download-pdf", bookID)
	}
	return fmt.Sprintf("/api/v1/books/%d/cover", bookID)
}
