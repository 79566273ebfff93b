package models

import "time"

type FileType string

const (
	FileTypeCover FileType = "cover"
	FileTypePDF   FileType = "pdf"
)

func (t FileType) IsValid() bool {
	return t == FileTypeCover || t == FileTypePDF
}

// File is a blob attached to a book. At most one per (book, type).
type File struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	BookID     uint      `json:"book_id" gorm:"not null;uniqueIndex:idx_files_book_type"`
	Type       FileType  `json:"type" gorm:"not null;size:10;uniqueIndex:idx_files_book_type"`
	Path       string    `json:"path" gorm:"not null;size:500"`
	MimeType   string    `json:"mime_type" gorm:"not null;size:100"`
	Size       int64     `json:"size" gorm:"not null"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}
