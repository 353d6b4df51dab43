package model

import "time"

// DocumentStatus 表示文档在后处理管道中的状态。
type DocumentStatus string

const (
	// DocumentUploaded 文件已装配入库，等待处理。
	DocumentUploaded DocumentStatus = "uploaded"
	// DocumentProcessing 处理管道正在提取与分段。
	DocumentProcessing DocumentStatus = "processing"
	// DocumentProcessed 分段已持久化并完成索引。
	DocumentProcessed DocumentStatus = "processed"
	// DocumentFailedStatus 提取、扫描或索引失败。
	DocumentFailedStatus DocumentStatus = "failed"
)

// Document 对应于数据库中的 documents 表。
// 一条记录代表一个装配完成并通过完整性校验的文件。
type Document struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID    uint           `gorm:"not null;index" json:"tenantId"`
	UserID      uint           `gorm:"not null" json:"userId"`
	Filename    string         `gorm:"type:varchar(255);not null" json:"filename"`
	Size        int64          `gorm:"not null" json:"size"`
	ContentHash string         `gorm:"type:varchar(64);not null;index" json:"contentHash"`
	StoragePath string         `gorm:"type:varchar(255);not null" json:"storagePath"`
	Status      DocumentStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	ProcessedAt *time.Time     `gorm:"default:null" json:"processedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// Segment 对应于数据库中的 document_segments 表。
// 同一文档的 SeqIndex 从 0 开始连续递增。
type Segment struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID    uint   `gorm:"not null;index" json:"documentId"`
	SeqIndex      int    `gorm:"not null" json:"seqIndex"`
	Content       string `gorm:"type:text" json:"content"`
	TokenCount    int    `gorm:"not null" json:"tokenCount"`
	Kind          string `gorm:"type:varchar(20)" json:"kind"` // heading / table / text
	ParentHeading string `gorm:"type:varchar(255)" json:"parentHeading"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Segment) TableName() string {
	return "document_segments"
}

// EsSegment 是写入 Elasticsearch 的分段文档结构。
// 向量由下游的向量化服务补写，这里只索引纯文本与归属信息。
type EsSegment struct {
	SegmentID     string `json:"segment_id"`
	DocumentID    uint   `json:"document_id"`
	TenantID      uint   `json:"tenant_id"`
	SeqIndex      int    `json:"seq_index"`
	Content       string `json:"content"`
	TokenCount    int    `json:"token_count"`
	Kind          string `json:"kind"`
	ParentHeading string `json:"parent_heading"`
}
