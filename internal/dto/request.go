package dto

type CreateNotificationManually struct {
	RecipientID string  `json:"recipient_id"`
	Kind        string  `json:"kind"`
	Message     string  `json:"message"`
	Link        *string `json:"link"`
}
