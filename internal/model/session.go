package model

import "time"

type Session struct {
	ID        uint      `gorm:"primaryKey" json:"session_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// SessionSummary is a session row with aggregate message statistics.
type SessionSummary struct {
	Session
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
}
