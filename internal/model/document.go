package model

import "time"

// Document status lifecycle: uploaded -> processing -> processed | failed.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusProcessed  = "processed"
	DocumentStatusFailed     = "failed"
)

// Document owns zero or more chunks. The chunk vectors live in the vector
// index; only metadata and the extracted text are kept here so a document can
// be reprocessed without re-uploading.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	ContentType string    `gorm:"size:128;not null" json:"content_type"`
	Category    string    `gorm:"size:64" json:"category,omitempty"`
	Language    string    `gorm:"size:16" json:"language,omitempty"`
	ContentHash string    `gorm:"size:64;index" json:"content_hash"`
	Version     int       `gorm:"not null;default:1" json:"version"`
	Status      string    `gorm:"size:16;not null;default:uploaded;index" json:"status"`
	Text        string    `gorm:"type:mediumtext" json:"-"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
