package model

import "time"

// ChunkHash tracks the content hash of every stored chunk so re-ingesting the
// same content produces no duplicate vectors. Unique per tenant.
type ChunkHash struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;uniqueIndex:idx_tenant_hash;index:idx_tenant_doc" json:"tenant_id"`
	DocumentID  uint      `gorm:"not null;index:idx_tenant_doc" json:"document_id"`
	ContentHash string    `gorm:"size:64;not null;uniqueIndex:idx_tenant_hash" json:"content_hash"`
	ChunkIndex  int       `gorm:"not null" json:"chunk_index"`
	CharCount   int       `json:"char_count"`
	CreatedAt   time.Time `json:"created_at"`
}
