// Package chunkstore 实现了进行中上传会话的分片字节暂存区。
// 分片以 (会话, 起始偏移) 为键存放；区间的非重叠校验由状态机在写入前完成，
// 存储层只负责字节的持久与回收。
package chunkstore

import (
	"context"
	"io"
)

// Store 是分片暂存区的抽象。不同偏移量的写入可以并行。
type Store interface {
	// Put 存入一个分片，返回底层存储路径。
	Put(ctx context.Context, sessionID string, start, end int64, r io.Reader) (string, error)
	// Open 打开一个已存入分片的读取流。
	Open(ctx context.Context, sessionID string, start, end int64) (io.ReadCloser, error)
	// Discard 回收会话的全部分片，用于终态清理。不存在的会话视为已回收。
	Discard(ctx context.Context, sessionID string) error
}
