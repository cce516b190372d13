package repository

import (
	"fmt"

	"gorm.io/gorm"

	"companybuddy/internal/model"
)

type ChunkHashRepository struct {
	db *gorm.DB
}

func NewChunkHashRepository(db *gorm.DB) *ChunkHashRepository {
	return &ChunkHashRepository{db: db}
}

func (r *ChunkHashRepository) CreateBatch(hashes []model.ChunkHash) error {
	if len(hashes) == 0 {
		return nil
	}
	if err := r.db.Create(&hashes).Error; err != nil {
		return fmt.Errorf("create chunk hashes batch failed: %w", err)
	}
	return nil
}

// HashSetByTenantID returns every stored content hash for the tenant, the
// dedupe set consulted during ingestion.
func (r *ChunkHashRepository) HashSetByTenantID(tenantID uint) (map[string]struct{}, error) {
	var hashes []string
	if err := r.db.Model(&model.ChunkHash{}).Where("tenant_id = ?", tenantID).Pluck("content_hash", &hashes).Error; err != nil {
		return nil, fmt.Errorf("list chunk hashes failed: %w", err)
	}
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return set, nil
}

func (r *ChunkHashRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ChunkHash{}).Error; err != nil {
		return fmt.Errorf("delete chunk hashes by document failed: %w", err)
	}
	return nil
}
