package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"documind/internal/model"
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

func (r *DocumentRepository) GetByFileID(userID, fileID string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("user_id = ? AND file_id = ?", userID, fileID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document by file id failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUserID(userID string) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// UpdateIngestState records the outcome of a background ingest run for the
// document, queryable by file id.
func (r *DocumentRepository) UpdateIngestState(fileID, status string, chunkCount, storedCount int, errMsg string) error {
	updates := map[string]interface{}{
		"status":       status,
		"chunk_count":  chunkCount,
		"stored_count": storedCount,
		"error":        errMsg,
	}
	if err := r.db.Model(&model.Document{}).Where("file_id = ?", fileID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update document ingest state failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByFilename(userID, filename string) (int64, error) {
	result := r.db.Where("user_id = ? AND filename = ?", userID, filename).Delete(&model.Document{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete documents by filename failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *DocumentRepository) DeleteBySessionID(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents by session failed: %w", err)
	}
	return nil
}
