package models

import (
	"time"
)

type Book struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:255;index"`
	Author      string  `json:"author" gorm:"not null;size:255;index"`
	Description string  `json:"description" gorm:"type:text"`
	ISBN        *string `json:"isbn" gorm:"size:20;index"`

	// Copy accounting: available_copies moves only with reservation transitions
	TotalCopies     int `json:"total_copies" gorm:"not null;default:0;check:chk_books_total_copies,total_copies >= 0"`
	AvailableCopies int `json:"available_copies" gorm:"not null;default:0;check:chk_books_available_copies,available_copies >= 0 AND available_copies <= total_copies"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Categories []Category `json:"categories" gorm:"many2many:book_categories;constraint:OnDelete:CASCADE"`
	Files      []File     `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null;size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Statistics, filled by list and detail queries
	BookCount int64 `json:"book_count" gorm:"->;-:migration"`
}

func (Category) TableName() string {
	return "categories"
}

// BookWithStats is a fully materialized catalog row
type BookWithStats struct {
	Book
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
	HasCover      bool    `json:"has_cover"`
	HasPDF        bool    `json:"has_pdf"`
}
