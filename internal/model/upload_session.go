package model

import "time"

// SessionStatus 表示上传会话的生命周期状态。
// 状态只能通过 session 包中的状态机迁移，不允许在其他位置直接改写。
type SessionStatus string

const (
	// SessionPending 会话已创建，尚未收到任何分片。
	SessionPending SessionStatus = "pending"
	// SessionReceiving 已接受至少一个分片，覆盖尚未完成。
	SessionReceiving SessionStatus = "receiving"
	// SessionAssembling 覆盖已完成，正在装配与校验。
	SessionAssembling SessionStatus = "assembling"
	// SessionComplete 终态：装配成功，文档已创建。
	SessionComplete SessionStatus = "complete"
	// SessionFailed 终态：装配或存储出错。
	SessionFailed SessionStatus = "failed"
	// SessionCancelled 终态：客户端或管理端取消。
	SessionCancelled SessionStatus = "cancelled"
	// SessionExpired 终态：超过截止时间未完成。
	SessionExpired SessionStatus = "expired"
)

// Terminal 报告该状态是否为终态。终态会话不再接受任何写入。
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionComplete, SessionFailed, SessionCancelled, SessionExpired:
		return true
	}
	return false
}

// UploadSession 对应于数据库中的 upload_sessions 表。
// SessionID 为不可猜测的不透明标识，在最小协议中兼作分片提交的授权凭据。
type UploadSession struct {
	SessionID     string        `gorm:"primaryKey;type:varchar(36)" json:"sessionId"`
	TenantID      uint          `gorm:"not null;index" json:"tenantId"`
	UserID        uint          `gorm:"not null;index" json:"userId"`
	Filename      string        `gorm:"type:varchar(255);not null" json:"filename"`
	TotalSize     int64         `gorm:"not null" json:"totalSize"`
	ChunkSize     int64         `gorm:"not null" json:"chunkSize"`
	BytesReceived int64         `gorm:"not null;default:0" json:"bytesReceived"`
	ContentHash   string        `gorm:"type:varchar(64)" json:"contentHash"` // 客户端声明的整文件 SHA-256，可选
	Status        SessionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DocumentID    *uint         `gorm:"default:null" json:"documentId"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt     time.Time     `gorm:"not null;index" json:"expiresAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UploadSession) TableName() string {
	return "upload_sessions"
}

// TotalChunks 返回按声明分片大小推导出的分片总数。
func (s *UploadSession) TotalChunks() int {
	if s.ChunkSize <= 0 || s.TotalSize <= 0 {
		return 0
	}
	return int((s.TotalSize + s.ChunkSize - 1) / s.ChunkSize)
}

// Progress 返回已接收字节占声明总大小的百分比。
func (s *UploadSession) Progress() float64 {
	if s.TotalSize == 0 {
		return 0
	}
	return float64(s.BytesReceived) / float64(s.TotalSize) * 100
}

// ChunkRange 对应于数据库中的 chunk_ranges 表。
// 区间为闭区间 [StartOffset, EndOffset]，同一会话内不允许重叠。
type ChunkRange struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	StartOffset int64  `gorm:"not null" json:"startOffset"`
	EndOffset   int64  `gorm:"not null" json:"endOffset"`
	Digest      string `gorm:"type:varchar(64);not null" json:"digest"` // 分片内容的 SHA-256，用于幂等重传判定
	StoragePath string `gorm:"type:varchar(255);not null" json:"storagePath"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChunkRange) TableName() string {
	return "chunk_ranges"
}
