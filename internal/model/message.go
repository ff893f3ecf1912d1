package model

import "time"

const (
	AuthorUser = "user"
	AuthorAI   = "ai"
)

// Message is one immutable conversation turn. Usage fields are only set on
// assistant turns.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"message_id"`
	SessionID      uint      `gorm:"not null;index:idx_message_session_created,priority:1" json:"session_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Author         string    `gorm:"size:10;not null" json:"author"`
	Content        string    `gorm:"type:text;not null" json:"message"`
	CreatedAt      time.Time `gorm:"index:idx_message_session_created,priority:2;index" json:"created_at"`
	InputTokens    int       `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens   int       `gorm:"not null;default:0" json:"output_tokens"`
	TotalTokens    int       `gorm:"not null;default:0" json:"total_tokens"`
	ResponseTimeMS int       `gorm:"not null;default:0" json:"response_time_ms"`
	ModelUsed      string    `gorm:"size:50;not null;default:''" json:"model_used"`
	Failed         bool      `gorm:"not null;default:false" json:"failed"`
}
