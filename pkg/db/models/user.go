package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. Deleting a user is a
// soft-disable (is_active=false); rows are never removed.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	RoleID       uuid.UUID  `gorm:"type:uuid;column:role_id;not null"`
	Role         *Role      `gorm:"foreignKey:RoleID"`
	// No gorm default tags here: a default would make GORM drop explicit
	// false values on insert, and Register must persist is_active=false.
	// The migration owns the column defaults.
	IsActive     bool       `gorm:"column:is_active;not null"`
	Approved     bool       `gorm:"column:approved;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName is the owner label used by reporting payloads.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.FirstName + " " + u.LastName
}
