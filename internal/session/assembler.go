package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"omnidocs-go/internal/chunkstore"
	"omnidocs-go/internal/uperr"
)

// ArtifactStore 是装配产物的存储后端。pkg/storage 的 MinIO 客户端直接满足该接口。
type ArtifactStore interface {
	PutObject(ctx context.Context, objectName string, r io.Reader, size int64) error
	RemoveObject(ctx context.Context, objectName string) error
}

// assembler 按偏移升序把暂存分片拼接为单一产物，并在写出过程中流式计算 SHA-256。
type assembler struct {
	chunks    chunkstore.Store
	artifacts ArtifactStore
}

// assemble 执行装配，返回产物的十六进制摘要与实际写出字节数。
// 任何分片读取或产物写入错误都会中断装配并原样返回。
func (a *assembler) assemble(ctx context.Context, sessionID, objectName string, ranges []byteRange, totalSize int64) (string, int64, error) {
	pr, pw := io.Pipe()
	hasher := sha256.New()

	var written int64
	copyDone := make(chan error, 1)
	go func() {
		var copyErr error
		for _, r := range ranges {
			rc, err := a.chunks.Open(ctx, sessionID, r.start, r.end)
			if err != nil {
				copyErr = err
				break
			}
			n, err := io.Copy(io.MultiWriter(pw, hasher), rc)
			_ = rc.Close()
			written += n
			if err != nil {
				copyErr = err
				break
			}
		}
		if copyErr != nil {
			pw.CloseWithError(copyErr)
		} else {
			_ = pw.Close()
		}
		copyDone <- copyErr
	}()

	putErr := a.artifacts.PutObject(ctx, objectName, pr, totalSize)
	// 写入端出错时读取端也会收到错误，这里确保两侧都已结束再判定结果。
	_ = pr.CloseWithError(nil)
	copyErr := <-copyDone

	// 产物写入失败会关闭管道读端，复制协程随之报 ErrClosedPipe，
	// 此时真正的失败原因是存储错误，保持其可重试分类。
	if copyErr != nil && !(putErr != nil && errors.Is(copyErr, io.ErrClosedPipe)) {
		return "", written, copyErr
	}
	if putErr != nil {
		return "", written, uperr.Wrapf(uperr.ErrStorageUnavailable, "写入装配产物 %s 失败: %v", objectName, putErr)
	}
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}
