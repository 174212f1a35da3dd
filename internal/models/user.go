package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

const (
	RoleArtist = "artist"
	RoleLabel  = "label"
	RoleAgency = "agency"
	RoleAdmin  = "admin"
)

type Claims struct {
	UserID string `json:"uid"`
	Login  string `json:"login"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Login     string    `json:"login"`
	Password  string    `json:"password,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func IsSelfServiceRole(role string) bool {
	switch role {
	case RoleArtist, RoleLabel, RoleAgency:
		return true
	}
	return false
}
