package dto

import (
	"github.com/google/uuid"

	"runtoyou.app/runtoyou/internal/entity"
)

// RegisterInput fields are checked by the service so a missing one yields a single message.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password  string `json:"password" binding:"omitempty,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthUser struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	Role           string    `json:"role,omitempty"`
}

func NewAuthUser(u *entity.User) AuthUser {
	return AuthUser{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Role:           u.Role.Name,
	}
}

type AuthResponse struct {
	Token       string   `json:"token"`
	ExpiresIn   int64    `json:"expiresIn"`
	User        AuthUser `json:"user"`
	SearchToken string   `json:"searchToken,omitempty"`
}
