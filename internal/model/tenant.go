package model

import "time"

// Tenant is the isolation boundary. Every document, chunk and query is scoped
// to exactly one tenant; retrieval must never cross it.
type Tenant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	CustomPrompt string    `gorm:"type:text" json:"custom_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
