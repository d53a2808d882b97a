package dto

import (
	"github.com/google/uuid"
)

type MQCreateNotification struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Link        *string   `json:"link"`
}

type MQFollow struct {
	UserID           uuid.UUID `json:"user_id"`
	FollowerID       uuid.UUID `json:"follower_id"`
	FollowerUsername string    `json:"follower_username"`
}
