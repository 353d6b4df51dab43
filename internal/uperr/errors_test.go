package uperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapfKeepsKind(t *testing.T) {
	err := Wrapf(ErrQuotaExceeded, "租户 %d 剩余配额不足", 7)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "租户 7")

	// 二次包装后分类仍可判定
	outer := Wrapf(err, "批量预留失败")
	assert.ErrorIs(t, outer, ErrQuotaExceeded)
}

func TestCode(t *testing.T) {
	cases := map[error]string{
		ErrValidation:         "invalid_argument",
		ErrQuotaExceeded:      "quota_exceeded",
		ErrInvalidRange:       "invalid_range",
		ErrRangeConflict:      "range_conflict",
		ErrSessionExpired:     "session_expired",
		ErrSessionClosed:      "session_closed",
		ErrSessionNotFound:    "session_not_found",
		ErrIncompleteAssembly: "incomplete_assembly",
		ErrIntegrityMismatch:  "integrity_mismatch",
		ErrStorageUnavailable: "storage_unavailable",
		ErrExtractionFailed:   "extraction_failed",
		ErrMalwareDetected:    "malware_detected",
	}
	for kind, want := range cases {
		assert.Equal(t, want, Code(Wrapf(kind, "ctx")))
	}
	assert.Equal(t, "internal_error", Code(errors.New("anything else")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Wrapf(ErrStorageUnavailable, "minio 不可达")))
	assert.False(t, Retryable(ErrRangeConflict))
	assert.False(t, Retryable(errors.New("other")))
}
