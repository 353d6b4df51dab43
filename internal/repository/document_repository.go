package repository

import (
	"time"

	"gorm.io/gorm"

	"omnidocs-go/internal/model"
)

// DocumentRepository 接口定义了文档与分段数据的持久化操作。
type DocumentRepository interface {
	CreateDocument(doc *model.Document) error
	GetDocument(documentID uint) (*model.Document, error)
	ListDocuments(tenantID uint, limit, offset int) ([]model.Document, int64, error)
	UpdateDocumentStatus(documentID uint, status model.DocumentStatus) error

	// ReplaceSegments 先删除文档既有分段再批量写入，保证重复处理的幂等性。
	ReplaceSegments(documentID uint, segments []*model.Segment) error
	GetSegments(documentID uint) ([]model.Segment, error)
}

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// CreateDocument 在数据库中创建一条文档记录。
func (r *documentRepository) CreateDocument(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetDocument 根据文档 ID 检索文档记录。
func (r *documentRepository) GetDocument(documentID uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", documentID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments 分页返回租户的文档，按创建时间倒序，并附带总数。
func (r *documentRepository) ListDocuments(tenantID uint, limit, offset int) ([]model.Document, int64, error) {
	var total int64
	if err := r.db.Model(&model.Document{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []model.Document
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// UpdateDocumentStatus 更新文档的处理状态。状态推进到 processed 时一并记录处理时刻。
func (r *documentRepository) UpdateDocumentStatus(documentID uint, status model.DocumentStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == model.DocumentProcessed {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&model.Document{}).Where("id = ?", documentID).Updates(updates).Error
}

// ReplaceSegments 在一个事务内完成旧分段清理与新分段批量写入。
func (r *documentRepository) ReplaceSegments(documentID uint, segments []*model.Segment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.Segment{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		return tx.Create(segments).Error
	})
}

// GetSegments 获取文档的全部分段，按序号升序。
func (r *documentRepository) GetSegments(documentID uint) ([]model.Segment, error) {
	var segments []model.Segment
	err := r.db.Where("document_id = ?", documentID).Order("seq_index asc").Find(&segments).Error
	return segments, err
}
