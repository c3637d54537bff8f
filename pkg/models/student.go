package models

import "time"

// Student is a learner profile
type Student struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	TelegramChatID *int64    `json:"telegram_chat_id" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
