package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"companybuddy/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByID is used by the ingestion worker, which receives bare document IDs.
func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by id failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndTenantID(id, tenantID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByTenantID(tenantID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// GetLatestByNameAndTenantID returns the newest version of the named document,
// nil when the name was never uploaded. Used to assign version numbers.
func (r *DocumentRepository) GetLatestByNameAndTenantID(name string, tenantID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("name = ? AND tenant_id = ?", name, tenantID).Order("version DESC").First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest document by name failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(id uint, status string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) MarkProcessed(id uint, chunkCount int) error {
	updates := map[string]any{
		"status":      model.DocumentStatusProcessed,
		"chunk_count": chunkCount,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark document processed failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByIDAndTenantID(id, tenantID uint) error {
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
