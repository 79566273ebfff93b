package services

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/disintegration/imaging"
)

func newTestFileService(t *testing.T, env *testEnv, config FileServiceConfig) (*fileService, *storage.LocalStore) {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	return NewFileService(env.repo, blobs, config, env.logger).(*fileService), blobs
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFileService_UploadCover(t *testing.T) {
	env := newTestEnv(t)
	config := DefaultFileServiceConfig()
	config.CoverMaxWidth, config.CoverMaxHeight = 100, 150
	svc, blobs := newTestFileService(t, env, config)
	book := env.seedBook(t, "Covered", 1)

	data := pngBytes(t, 400, 300)
	resp, err := svc.UploadCover(env.ctx, book.ID, "front.png", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to upload cover: %v", err)
	}
	if resp.Type != models.FileTypeCover || resp.MimeType != "image/jpeg" {
		t.Errorf("file = %s %s", resp.Type, resp.MimeType)
	}
	if !strings.HasPrefix(resp.Path, "covers/") || !strings.HasSuffix(resp.Path, ".jpg") {
		t.Errorf("path = %s", resp.Path)
	}
	if resp.URL != "/api/v1/books/1/cover" {
		t.Errorf("url = %s", resp.URL)
	}

	content, err := svc.OpenCover(env.ctx, book.ID)
	if err != nil {
		t.Fatalf("Failed to open cover: %v", err)
	}
	defer content.Reader.Close()

	img, format, err := image.Decode(content.Reader)
	if err != nil {
		t.Fatalf("Failed to decode stored cover: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s, want jpeg", format)
	}
	if b := img.Bounds(); b.Dx() > 100 || b.Dy() > 150 {
		t.Errorf("stored cover %dx%d exceeds 100x150", b.Dx(), b.Dy())
	}

	t.Run("replacing removes the old blob", func(t *testing.T) {
		first := resp.Path
		again := pngBytes(t, 50, 50)
		replaced, err := svc.UploadCover(env.ctx, book.ID, "back.png", int64(len(again)), bytes.NewReader(again))
		if err != nil {
			t.Fatalf("Failed to replace cover: %v", err)
		}
		if replaced.Path == first {
			t.Fatal("replacement reused the old key")
		}
		if _, err := blobs.Open(env.ctx, first); !errors.Is(err, storage.ErrBlobNotFound) {
			t.Errorf("old blob open = %v, want ErrBlobNotFound", err)
		}
		files, _ := env.repo.File().ListByBook(env.ctx, book.ID)
		if len(files) != 1 {
			t.Errorf("files = %d, want 1", len(files))
		}
	})

	t.Run("book response exposes cover url", func(t *testing.T) {
		books := newTestBookService(t, env)
		got, err := books.Get(env.ctx, book.ID)
		if err != nil {
			t.Fatalf("Failed to get book: %v", err)
		}
		if !got.HasCover || got.CoverURL != "/api/v1/books/1/cover" {
			t.Errorf("has_cover=%v cover_url=%q", got.HasCover, got.CoverURL)
		}
	})
}

func TestFileService_UploadRejections(t *testing.T) {
	env := newTestEnv(t)
	config := DefaultFileServiceConfig()
	config.MaxCoverBytes = 1024
	svc, _ := newTestFileService(t, env, config)
	book := env.seedBook(t, "Rejects", 1)

	tests := []struct {
		name    string
		bookID  uint
		data    []byte
		pdf     bool
		wantErr error
	}{
		{"text as cover", book.ID, []byte("plain text, not an image"), false, ErrInvalidFile},
		{"empty cover", book.ID, nil, false, ErrInvalidFile},
		{"oversized cover", book.ID, bytes.Repeat([]byte{0xff}, 2048), false, ErrFileTooLarge},
		{"missing book", 999, pngBytes(t, 10, 10), false, ErrBookNotFound},
		{"png as pdf", book.ID, pngBytes(t, 10, 10), true, ErrInvalidFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.pdf {
				_, err = svc.UploadPDF(env.ctx, tt.bookID, "doc.pdf", int64(len(tt.data)), bytes.NewReader(tt.data))
			} else {
				_, err = svc.UploadCover(env.ctx, tt.bookID, "img.png", int64(len(tt.data)), bytes.NewReader(tt.data))
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	files, _ := env.repo.File().ListByBook(env.ctx, book.ID)
	if len(files) != 0 {
		t.Errorf("rejected uploads left %d file records", len(files))
	}
}

func TestFileService_PDF(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newTestFileService(t, env, DefaultFileServiceConfig())
	book := env.seedBook(t, "Readable", 1)

	if _, err := svc.OpenPDF(env.ctx, book.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("open before upload = %v, want ErrFileNotFound", err)
	}

	doc := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	resp, err := svc.UploadPDF(env.ctx, book.ID, "Readable Book.pdf", int64(len(doc)), bytes.NewReader(doc))
	if err != nil {
		t.Fatalf("Failed to upload pdf: %v", err)
	}
	if resp.URL != "/api/v1/books/1/download-pdf" || resp.Size != int64(len(doc)) {
		t.Errorf("url=%s size=%d", resp.URL, resp.Size)
	}

	content, err := svc.OpenPDF(env.ctx, book.ID)
	if err != nil {
		t.Fatalf("Failed to open pdf: %v", err)
	}
	got, _ := io.ReadAll(content.Reader)
	content.Reader.Close()
	if !bytes.Equal(got, doc) {
		t.Error("stored pdf differs from upload")
	}

	if err := svc.Delete(env.ctx, resp.ID); err != nil {
		t.Fatalf("Failed to delete file: %v", err)
	}
	if _, err := svc.OpenPDF(env.ctx, book.ID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("open after delete = %v, want ErrFileNotFound", err)
	}
	if err := svc.Delete(env.ctx, resp.ID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second delete = %v, want ErrFileNotFound", err)
	}
}
