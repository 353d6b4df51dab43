package chunkstore

import (
	"context"
	"fmt"
	"io"

	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/storage"
)

// minioStore 是 Store 的 MinIO 实现，分片对象键为 chunks/<sessionID>/<start>-<end>。
type minioStore struct {
	client *storage.Client
}

// NewMinIO 创建一个以 MinIO 为后端的分片存储。
func NewMinIO(client *storage.Client) Store {
	return &minioStore{client: client}
}

// objectName 生成分片对象键。
func (s *minioStore) objectName(sessionID string, start, end int64) string {
	return fmt.Sprintf("chunks/%s/%d-%d", sessionID, start, end)
}

// Put 将分片流式写入 MinIO。
func (s *minioStore) Put(ctx context.Context, sessionID string, start, end int64, r io.Reader) (string, error) {
	objectName := s.objectName(sessionID, start, end)
	size := end - start + 1
	if err := s.client.PutObject(ctx, objectName, r, size); err != nil {
		return "", uperr.Wrapf(uperr.ErrStorageUnavailable, "写入分片对象 %s 失败: %v", objectName, err)
	}
	return objectName, nil
}

// Open 打开分片对象的读取流。
func (s *minioStore) Open(ctx context.Context, sessionID string, start, end int64) (io.ReadCloser, error) {
	objectName := s.objectName(sessionID, start, end)
	rc, err := s.client.GetObject(ctx, objectName)
	if err != nil {
		return nil, uperr.Wrapf(uperr.ErrStorageUnavailable, "读取分片对象 %s 失败: %v", objectName, err)
	}
	return rc, nil
}

// Discard 删除会话前缀下的全部分片对象。
func (s *minioStore) Discard(ctx context.Context, sessionID string) error {
	prefix := fmt.Sprintf("chunks/%s/", sessionID)
	if err := s.client.RemovePrefix(ctx, prefix); err != nil {
		return uperr.Wrapf(uperr.ErrStorageUnavailable, "回收会话 %s 的分片失败: %v", sessionID, err)
	}
	return nil
}
