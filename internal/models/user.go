package models

import (
	"time"

	"github.com/lib/pq"
)

// User is the account record owned by the surrounding platform. The chat
// subsystem only reads it: receiver-exists checks, chat list peer info and
// the authenticated principal all resolve against this table.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"type:text;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	// Role is "doctor", "patient" or "admin".
	Role string `gorm:"type:text;not null;index" json:"role"`
	// Specializations applies to doctors only.
	Specializations pq.StringArray `gorm:"type:text[]" json:"specializations,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}
