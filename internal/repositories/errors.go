package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrNoAvailableCopies is returned by a conditional decrement that matched no row
	ErrNoAvailableCopies = errors.New("no available copies")
	// ErrCopyOverflow is returned when an increment would exceed total_copies
	ErrCopyOverflow = errors.New("available copies would exceed total copies")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
