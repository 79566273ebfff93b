package models

import (
	"math"
	"time"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

type Rating struct {
	ID     uint    `json:"id" gorm:"primaryKey"`
	BookID uint    `json:"book_id" gorm:"not null;uniqueIndex:idx_ratings_book_user"`
	UserID string  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_book_user"`
	Rating float64 `json:"rating" gorm:"type:numeric(2,1);not null;check:chk_ratings_range,rating >= 0 AND rating <= 5"`
	Review *string `json:"review" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Book *Book `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingSummary is the per-book aggregate over all ratings
type RatingSummary struct {
	BookID        uint    `json:"book_id"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

// RoundRating rounds to one decimal place, half away from zero.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
