package chunkstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// rangeKey 唯一标识会话内的一个分片区间。
type rangeKey struct {
	start int64
	end   int64
}

// MemoryStore 是 Store 的内存实现，用于测试与单机部署。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[rangeKey][]byte
}

// NewMemory 创建一个内存分片存储。
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[rangeKey][]byte)}
}

// Put 将分片内容复制到内存。
func (s *MemoryStore) Put(_ context.Context, sessionID string, start, end int64, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ranges, ok := s.sessions[sessionID]
	if !ok {
		ranges = make(map[rangeKey][]byte)
		s.sessions[sessionID] = ranges
	}
	ranges[rangeKey{start: start, end: end}] = data
	return fmt.Sprintf("mem/%s/%d-%d", sessionID, start, end), nil
}

// Open 返回分片内容的读取流。
func (s *MemoryStore) Open(_ context.Context, sessionID string, start, end int64) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranges, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("会话 %s 不存在任何分片", sessionID)
	}
	data, ok := ranges[rangeKey{start: start, end: end}]
	if !ok {
		return nil, fmt.Errorf("会话 %s 缺少分片 [%d,%d]", sessionID, start, end)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Discard 丢弃会话的全部分片。
func (s *MemoryStore) Discard(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Count 返回会话当前暂存的分片数，仅测试使用。
func (s *MemoryStore) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
