package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationApproved ReservationStatus = "approved"
	ReservationRejected ReservationStatus = "rejected"
	ReservationReturned ReservationStatus = "returned"
)

// ActiveReservationStatuses hold a copy of the book
var ActiveReservationStatuses = []ReservationStatus{ReservationPending, ReservationApproved}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationRejected, ReservationReturned:
		return true
	}
	return false
}

func (s ReservationStatus) IsActive() bool {
	return s == ReservationPending || s == ReservationApproved
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationRejected || s == ReservationReturned
}

type Reservation struct {
	ID         uint              `json:"id" gorm:"primaryKey"`
	UserID     string            `json:"user_id" gorm:"type:uuid;not null;index"`
	BookID     uint              `json:"book_id" gorm:"not null;index"`
	Status     ReservationStatus `json:"status" gorm:"not null;size:20;default:pending;index"`
	ReservedAt time.Time         `json:"reserved_at" gorm:"not null;index"`
	DueDate    *time.Time        `json:"due_date" gorm:"type:date"`
	HandledBy  *string           `json:"handled_by" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User    *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Book    *Book `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Handler *User `json:"-" gorm:"foreignKey:HandledBy;constraint:OnDelete:SET NULL"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// ReservationEvent is the audit trail of lifecycle transitions
type ReservationEvent struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	ReservationID uint               `json:"reservation_id" gorm:"not null;index"`
	FromStatus    *ReservationStatus `json:"from_status" gorm:"size:20"`
	ToStatus      ReservationStatus  `json:"to_status" gorm:"not null;size:20"`
	ActorID       string             `json:"actor_id" gorm:"type:uuid;not null"`
	Payload       datatypes.JSON     `json:"payload" gorm:"type:jsonb"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (ReservationEvent) TableName() string {
	return "reservation_events"
}
