// Package uperr 定义了上传与处理流程中使用的错误分类。
// 调用方统一通过 errors.Is 判断类别，通过 Code 映射出对外的错误码。
package uperr

import (
	"errors"
	"fmt"
)

// 核心错误分类。校验类错误同步拒绝且无副作用；装配阶段的错误
// 在返回前必须先释放配额并将会话置为 failed。
var (
	// ErrValidation 表示请求参数未通过校验。
	ErrValidation = errors.New("invalid argument")
	// ErrQuotaExceeded 表示租户配额不足，预留被拒绝。
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrInvalidRange 表示分片字节区间不合法或越界。
	ErrInvalidRange = errors.New("invalid byte range")
	// ErrRangeConflict 表示同一偏移量被提交了不同内容。
	ErrRangeConflict = errors.New("range conflict")
	// ErrSessionExpired 表示会话已超过截止时间，不再接受写入。
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionClosed 表示会话已处于终态。
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionNotFound 表示会话不存在。
	ErrSessionNotFound = errors.New("session not found")
	// ErrIncompleteAssembly 表示装配后的文件长度与声明不符。
	ErrIncompleteAssembly = errors.New("incomplete assembly")
	// ErrIntegrityMismatch 表示装配后的内容摘要与客户端声明不符。
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrStorageUnavailable 表示分片或文件存储不可达，客户端可退避重试。
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrExtractionFailed 表示文本提取失败。
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrMalwareDetected 表示病毒扫描命中。
	ErrMalwareDetected = errors.New("malware detected")
)

// Wrapf 在保留错误分类的前提下补充上下文。
func Wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Code 将错误分类映射为对外响应中的错误码字符串。
// 未识别的错误统一归为 internal_error。
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid_argument"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrRangeConflict):
		return "range_conflict"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrIncompleteAssembly):
		return "incomplete_assembly"
	case errors.Is(err, ErrIntegrityMismatch):
		return "integrity_mismatch"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrMalwareDetected):
		return "malware_detected"
	default:
		return "internal_error"
	}
}

// Retryable 报告错误是否属于客户端可退避重试的类别。
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
