package auth

import (
	"github.com/dfmorales/facturas-backend/internal/users"
)

// RegisterInput holds the validated self-registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput holds the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// Credentials is the token pair returned on successful login or refresh.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult pairs the minted credentials with the authenticated user.
type LoginResult struct {
	Credentials
	User *users.UserDTO `json:"user"`
}
