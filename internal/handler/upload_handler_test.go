package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnidocs-go/internal/uperr"
)

func TestParseContentRange(t *testing.T) {
	start, end, total, err := parseContentRange("bytes 0-1048575/5242880")
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(1048575), end)
	assert.Equal(t, int64(5242880), total)
}

func TestParseContentRangeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"bytes",
		"0-100/200",
		"bytes 0-100",
		"bytes abc-def/200",
		"items 0-100/200",
	}
	for _, header := range cases {
		_, _, _, err := parseContentRange(header)
		assert.ErrorIs(t, err, uperr.ErrInvalidRange, "header=%q", header)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		uperr.ErrValidation:         http.StatusBadRequest,
		uperr.ErrInvalidRange:       http.StatusRequestedRangeNotSatisfiable,
		uperr.ErrRangeConflict:      http.StatusConflict,
		uperr.ErrQuotaExceeded:      http.StatusRequestEntityTooLarge,
		uperr.ErrSessionNotFound:    http.StatusNotFound,
		uperr.ErrSessionExpired:     http.StatusGone,
		uperr.ErrSessionClosed:      http.StatusConflict,
		uperr.ErrIntegrityMismatch:  http.StatusUnprocessableEntity,
		uperr.ErrStorageUnavailable: http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		assert.Equal(t, want, httpStatus(uperr.Wrapf(kind, "ctx")))
	}
	assert.Equal(t, http.StatusInternalServerError, httpStatus(uperr.ErrIncompleteAssembly))
}
