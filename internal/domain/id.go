package domain

import (
	"github.com/google/uuid"
)

// NewID generates a user_id for a freshly inserted record. UUIDv7 strings are
// 36 characters, matching the VARCHAR(36) primary key.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
