package model

import "time"

// QueryRecord is an append-only log row per question asked: retrieval metrics,
// score distribution and latency. It references documents by ID only, so
// deleting a document never rewrites history.
type QueryRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TenantID        uint      `gorm:"not null;index" json:"tenant_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ConversationID  uint      `gorm:"index" json:"conversation_id"`
	Question        string    `gorm:"type:text;not null" json:"question"`
	ChunksRetrieved int       `gorm:"not null" json:"chunks_retrieved"`
	CitedChunkIDs   string    `gorm:"type:text" json:"cited_chunk_ids"` // JSON array of "docID:chunkIndex"
	MinScore        float64   `json:"min_score"`
	AvgScore        float64   `json:"avg_score"`
	MaxScore        float64   `json:"max_score"`
	ResponseTimeMs  int64     `json:"response_time_ms"`
	Refused         bool      `json:"refused"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}
