package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/dfmorales/facturas-backend/pkg/db/models"
)

// UserDTO is the API shape of a user. The password hash never leaves the
// service layer.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	Approved    bool       `json:"approved"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUserDTO maps the stored user onto its API shape.
func NewUserDTO(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	dto := &UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsActive:    user.IsActive,
		Approved:    user.Approved,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Role != nil {
		dto.Role = user.Role.Name
	}
	return dto
}
