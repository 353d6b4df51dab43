// Package service 封装了对外操作背后的业务编排。
package service

import (
	"context"
	"time"

	"omnidocs-go/internal/model"
	"omnidocs-go/internal/repository"
	"omnidocs-go/pkg/log"
	"omnidocs-go/pkg/tasks"
)

// ProcessingProducer 投递文档处理任务，kafka.Producer 满足该接口。
type ProcessingProducer interface {
	ProduceProcessingTask(ctx context.Context, task tasks.DocumentProcessingTask) error
}

// URLSigner 为存储对象生成限时访问链接，storage.Client 满足该接口。
type URLSigner interface {
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// downloadURLExpiry 是下载链接的有效时长。
const downloadURLExpiry = 15 * time.Minute

// DocumentService 接口定义了文档侧的业务操作。
// CreateDocument 同时是上传状态机完成路径的落点（session.DocumentSink）。
type DocumentService interface {
	CreateDocument(ctx context.Context, sess *model.UploadSession, contentHash, storagePath string) (uint, error)
	GetDocument(documentID uint) (*model.Document, error)
	ListDocuments(tenantID uint, limit, offset int) ([]model.Document, int64, error)
	GetSegments(documentID uint) ([]model.Segment, error)
	GetDownloadURL(ctx context.Context, doc *model.Document) (string, error)
}

// documentService 是 DocumentService 接口的实现。
type documentService struct {
	docRepo  repository.DocumentRepository
	producer ProcessingProducer
	signer   URLSigner
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docRepo repository.DocumentRepository, producer ProcessingProducer, signer URLSigner) DocumentService {
	return &documentService{docRepo: docRepo, producer: producer, signer: signer}
}

// CreateDocument 为装配完成的文件落一条文档记录，并投递后处理任务。
// 任务投递失败不阻断上传完成：文档已入库，处理可以事后补投。
func (s *documentService) CreateDocument(ctx context.Context, sess *model.UploadSession, contentHash, storagePath string) (uint, error) {
	doc := &model.Document{
		TenantID:    sess.TenantID,
		UserID:      sess.UserID,
		Filename:    sess.Filename,
		Size:        sess.TotalSize,
		ContentHash: contentHash,
		StoragePath: storagePath,
		Status:      model.DocumentUploaded,
	}
	if err := s.docRepo.CreateDocument(doc); err != nil {
		return 0, err
	}

	task := tasks.DocumentProcessingTask{
		DocumentID:  doc.ID,
		TenantID:    sess.TenantID,
		UserID:      sess.UserID,
		Filename:    sess.Filename,
		StoragePath: storagePath,
		ContentHash: contentHash,
	}
	if err := s.producer.ProduceProcessingTask(ctx, task); err != nil {
		log.Errorf("[CreateDocument] 投递处理任务失败, document=%d: %v", doc.ID, err)
	}
	return doc.ID, nil
}

// GetDocument 返回文档记录。
func (s *documentService) GetDocument(documentID uint) (*model.Document, error) {
	return s.docRepo.GetDocument(documentID)
}

// ListDocuments 分页返回租户的文档列表。
func (s *documentService) ListDocuments(tenantID uint, limit, offset int) ([]model.Document, int64, error) {
	return s.docRepo.ListDocuments(tenantID, limit, offset)
}

// GetSegments 返回文档的全部分段。
func (s *documentService) GetSegments(documentID uint) ([]model.Segment, error) {
	return s.docRepo.GetSegments(documentID)
}

// GetDownloadURL 为文档原始对象生成限时下载链接。
func (s *documentService) GetDownloadURL(ctx context.Context, doc *model.Document) (string, error) {
	return s.signer.PresignedGetURL(ctx, doc.StoragePath, downloadURLExpiry)
}
