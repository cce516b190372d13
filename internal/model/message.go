package model

import "time"

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	RewrittenQuery string    `gorm:"type:text" json:"rewritten_query,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
