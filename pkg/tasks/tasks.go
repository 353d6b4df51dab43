// Package tasks 定义了经由 Kafka 流转的任务结构。
package tasks

// DocumentProcessingTask 是装配完成后投递到处理主题的任务。
// 由本服务自产自销：生产方是上传状态机完成路径，消费方是处理管道。
type DocumentProcessingTask struct {
	DocumentID  uint   `json:"document_id"`
	TenantID    uint   `json:"tenant_id"`
	UserID      uint   `json:"user_id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	ContentHash string `json:"content_hash"`
}

// EmbeddingTask 是分段落库后交给外部向量化服务的任务。
// 本服务只生产该主题，不消费。
type EmbeddingTask struct {
	DocumentID uint   `json:"document_id"`
	SegmentID  uint   `json:"segment_id"`
	SeqIndex   int    `json:"seq_index"`
	Content    string `json:"content"`
	IndexName  string `json:"index_name"`
}
