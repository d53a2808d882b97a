package model

import "github.com/google/uuid"

// User is the caller identity taken from the access token.
type User struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}
